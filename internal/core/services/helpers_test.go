package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

type fixture struct {
	pollRepo  ports.PollRepository
	voteRepo  ports.VoteRepository
	store     ports.PollStore
	ledger    ports.VoteLedger
	results   ports.ResultsAggregator
	service   ports.PollService
	publisher *recordingPublisher
	logger    *slog.Logger
}

func newFixture(t *testing.T, uniqueVoter bool) *fixture {
	t.Helper()

	f := &fixture{
		pollRepo:  memory.NewPollRepository(),
		voteRepo:  memory.NewVoteRepository(),
		publisher: &recordingPublisher{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	f.store = NewPollStore(f.pollRepo)
	f.ledger = NewVoteLedger(f.pollRepo, f.voteRepo, uniqueVoter)
	f.results = NewResultsAggregator(f.pollRepo, f.ledger)
	f.service = NewPollService(f.store, f.ledger, f.results, f.publisher, f.logger)
	return f
}

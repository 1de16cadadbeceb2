package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollService struct {
	store   ports.PollStore
	ledger  ports.VoteLedger
	results ports.ResultsAggregator
	events  ports.EventPublisher
	logger  *slog.Logger
}

func NewPollService(
	store ports.PollStore,
	ledger ports.VoteLedger,
	results ports.ResultsAggregator,
	events ports.EventPublisher,
	logger *slog.Logger,
) ports.PollService {
	return &pollService{
		store:   store,
		ledger:  ledger,
		results: results,
		events:  events,
		logger:  logger,
	}
}

func (s *pollService) CreatePoll(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	options := make([]string, 0, len(input.Options))
	for _, opt := range input.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		options = append(options, opt)
	}

	poll, err := s.store.Create(ctx, strings.TrimSpace(input.Question), options)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "poll created", "poll_id", poll.ID, "options", len(poll.Options))
	s.events.Publish(ctx, domain.PollCreated(poll))

	return poll, nil
}

func (s *pollService) CastVote(ctx context.Context, input ports.CastVoteInput) error {
	vote, err := s.ledger.Record(ctx, input.PollID, input.Option, input.VoterID)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "vote recorded", "poll_id", vote.PollID, "vote_id", vote.ID)
	s.events.Publish(ctx, domain.VoteRecorded(vote))

	return nil
}

func (s *pollService) GetResults(ctx context.Context, pollID string) (*domain.Results, error) {
	return s.results.Compute(ctx, pollID)
}

func (s *pollService) GetPoll(ctx context.Context, pollID string) (*domain.Poll, error) {
	return s.store.Get(ctx, pollID)
}

func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) ([]domain.PollSummary, error) {
	return s.store.List(ctx, input.Page, input.Limit)
}

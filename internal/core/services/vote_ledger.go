package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type voteLedger struct {
	pollRepo    ports.PollRepository
	voteRepo    ports.VoteRepository
	uniqueVoter bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewVoteLedger returns a ledger that serializes writes per poll. With
// uniqueVoter set, a voter id may vote at most once on a given poll.
func NewVoteLedger(pollRepo ports.PollRepository, voteRepo ports.VoteRepository, uniqueVoter bool) ports.VoteLedger {
	return &voteLedger{
		pollRepo:    pollRepo,
		voteRepo:    voteRepo,
		uniqueVoter: uniqueVoter,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (l *voteLedger) Record(ctx context.Context, pollID, option, voterID string) (*domain.Vote, error) {
	poll, err := l.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if !poll.HasOption(option) {
		return nil, domain.ErrInvalidOption
	}

	vote := &domain.Vote{
		ID:        uuid.NewString(),
		PollID:    poll.ID,
		Option:    option,
		VoterID:   voterID,
		CreatedAt: time.Now().UTC(),
	}

	lock := l.lockFor(poll.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.voteRepo.Append(ctx, vote, l.uniqueVoter && voterID != ""); err != nil {
		return nil, err
	}

	return vote, nil
}

func (l *voteLedger) CountsFor(ctx context.Context, poll *domain.Poll) (map[string]int64, error) {
	raw, err := l.voteRepo.CountByOption(ctx, poll.ID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(poll.Options))
	for _, opt := range poll.Options {
		counts[opt] = raw[opt]
	}
	return counts, nil
}

// Polls are never deleted, so a lock lives as long as the ledger.
func (l *voteLedger) lockFor(pollID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[pollID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[pollID] = lock
	}
	return lock
}

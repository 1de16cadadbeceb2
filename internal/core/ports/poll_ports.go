package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	// GetByID returns domain.ErrPollNotFound when no poll has that id.
	GetByID(ctx context.Context, id string) (*domain.Poll, error)
	// List returns summaries in insertion order. A non-positive limit returns
	// every poll from offset on.
	List(ctx context.Context, limit, offset int) ([]domain.PollSummary, error)
	GetAll(ctx context.Context) ([]*domain.Poll, error)
}

// PollStore validates polls and owns identity assignment.
type PollStore interface {
	Create(ctx context.Context, question string, options []string) (*domain.Poll, error)
	Get(ctx context.Context, id string) (*domain.Poll, error)
	List(ctx context.Context, page, limit int) ([]domain.PollSummary, error)
}

type CreatePollInput struct {
	Question string
	Options  []string
}

// ListPollsInput selects a page of polls. The zero value selects all of them.
type ListPollsInput struct {
	Page  int
	Limit int
}

type CastVoteInput struct {
	PollID  string
	Option  string
	VoterID string
}

type PollService interface {
	CreatePoll(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	CastVote(ctx context.Context, input CastVoteInput) error
	GetResults(ctx context.Context, pollID string) (*domain.Results, error)
	GetPoll(ctx context.Context, pollID string) (*domain.Poll, error)
	ListPolls(ctx context.Context, input ListPollsInput) ([]domain.PollSummary, error)
}

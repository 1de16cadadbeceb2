package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type VoteRepository interface {
	// Append stores the vote and bumps its option counter as one atomic step.
	// With unique set and a non-empty VoterID it fails with domain.ErrDuplicateVote
	// when that voter already has a vote on the poll.
	Append(ctx context.Context, vote *domain.Vote, unique bool) error
	// CountByOption returns counts only for options that received votes.
	CountByOption(ctx context.Context, pollID string) (map[string]int64, error)
}

type VoteLedger interface {
	Record(ctx context.Context, pollID, option, voterID string) (*domain.Vote, error)
	// CountsFor returns a count for every option of the poll, zeros included.
	CountsFor(ctx context.Context, poll *domain.Poll) (map[string]int64, error)
}

package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type ResultsAggregator interface {
	Compute(ctx context.Context, pollID string) (*domain.Results, error)
}

type PollResultRepository interface {
	SaveSnapshot(ctx context.Context, snapshots []domain.ResultSnapshot) error
	GetSnapshot(ctx context.Context, pollID string) ([]domain.ResultSnapshot, error)
}

type SummaryService interface {
	SummarizeAllVotes(ctx context.Context) error
}

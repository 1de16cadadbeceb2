package memory

import (
	"context"
	"sync"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollResultRepository struct {
	mu        sync.RWMutex
	snapshots map[string][]domain.ResultSnapshot
}

func NewPollResultRepository() ports.PollResultRepository {
	return &pollResultRepository{
		snapshots: make(map[string][]domain.ResultSnapshot),
	}
}

func (r *pollResultRepository) SaveSnapshot(ctx context.Context, snapshots []domain.ResultSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshots[0].PollID] = append([]domain.ResultSnapshot(nil), snapshots...)
	return nil
}

func (r *pollResultRepository) GetSnapshot(ctx context.Context, pollID string) ([]domain.ResultSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ResultSnapshot(nil), r.snapshots[pollID]...), nil
}

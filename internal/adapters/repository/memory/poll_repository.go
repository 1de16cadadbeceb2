// Package memory keeps polls and votes in process memory. It backs tests and
// single-instance deployments that do not need durability.
package memory

import (
	"context"
	"sync"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollRepository struct {
	mu    sync.RWMutex
	polls map[string]*domain.Poll
	order []string
}

func NewPollRepository() ports.PollRepository {
	return &pollRepository{
		polls: make(map[string]*domain.Poll),
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.polls[poll.ID]; !exists {
		r.order = append(r.order, poll.ID)
	}
	r.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	poll, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (r *pollRepository) List(ctx context.Context, limit, offset int) ([]domain.PollSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	end := len(r.order)
	if limit > 0 && offset < end && limit < end-offset {
		end = offset + limit
	}

	summaries := make([]domain.PollSummary, 0, max(end-offset, 0))
	for i := offset; i < end; i++ {
		summaries = append(summaries, r.polls[r.order[i]].Summary())
	}
	return summaries, nil
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	polls := make([]*domain.Poll, 0, len(r.order))
	for _, id := range r.order {
		polls = append(polls, clonePoll(r.polls[id]))
	}
	return polls, nil
}

func clonePoll(p *domain.Poll) *domain.Poll {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	return &c
}

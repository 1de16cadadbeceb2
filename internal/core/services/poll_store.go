package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type pollStore struct {
	repo ports.PollRepository
}

func NewPollStore(repo ports.PollRepository) ports.PollStore {
	return &pollStore{
		repo: repo,
	}
}

func (s *pollStore) Create(ctx context.Context, question string, options []string) (*domain.Poll, error) {
	if err := domain.ValidatePoll(question, options); err != nil {
		return nil, err
	}

	poll := &domain.Poll{
		ID:        uuid.NewString(),
		Question:  strings.TrimSpace(question),
		Options:   append([]string(nil), options...),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	return poll, nil
}

func (s *pollStore) Get(ctx context.Context, id string) (*domain.Poll, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every poll when both page and limit are zero. Any other input
// selects one normalized page.
func (s *pollStore) List(ctx context.Context, page, limit int) ([]domain.PollSummary, error) {
	if page == 0 && limit == 0 {
		return s.repo.List(ctx, 0, 0)
	}
	page, limit = NormalizePage(page, limit)
	return s.repo.List(ctx, limit, (page-1)*limit)
}

// NormalizePage clamps pagination input: pages start at 1 and a limit outside
// 1..MaxPageSize falls back to DefaultPageSize. The page is capped so the
// resulting offset fits in an int.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

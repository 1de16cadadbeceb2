package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const maxConcurrentSummaries = 8

type summaryService struct {
	pollRepo       ports.PollRepository
	aggregator     ports.ResultsAggregator
	pollResultRepo ports.PollResultRepository
	logger         *slog.Logger
}

func NewSummaryService(
	pollRepo ports.PollRepository,
	aggregator ports.ResultsAggregator,
	pollResultRepo ports.PollResultRepository,
	logger *slog.Logger,
) ports.SummaryService {
	return &summaryService{
		pollRepo:       pollRepo,
		aggregator:     aggregator,
		pollResultRepo: pollResultRepo,
		logger:         logger,
	}
}

// SummarizeAllVotes computes results for every poll and stores them as a
// snapshot. Every poll is attempted; the first failure is returned.
func (s *summaryService) SummarizeAllVotes(ctx context.Context) error {
	polls, err := s.pollRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch all polls: %w", err)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(polls))
	sem := make(chan struct{}, maxConcurrentSummaries)

	for _, poll := range polls {
		wg.Add(1)
		go func(pollID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.summarize(ctx, pollID); err != nil {
				errChan <- fmt.Errorf("failed to summarize poll %s: %w", pollID, err)
			}
		}(poll.ID)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "vote summaries stored", "polls", len(polls))
	return nil
}

func (s *summaryService) summarize(ctx context.Context, pollID string) error {
	results, err := s.aggregator.Compute(ctx, pollID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	snapshots := make([]domain.ResultSnapshot, 0, len(results.Tallies))
	for _, t := range results.Tallies {
		snapshots = append(snapshots, domain.ResultSnapshot{
			PollID:        results.PollID,
			Option:        t.Option,
			VoteCount:     t.Votes,
			Percentage:    t.Percentage,
			LastUpdatedAt: now,
		})
	}

	return s.pollResultRepo.SaveSnapshot(ctx, snapshots)
}

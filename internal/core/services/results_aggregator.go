package services

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type resultsAggregator struct {
	pollRepo ports.PollRepository
	ledger   ports.VoteLedger
}

func NewResultsAggregator(pollRepo ports.PollRepository, ledger ports.VoteLedger) ports.ResultsAggregator {
	return &resultsAggregator{
		pollRepo: pollRepo,
		ledger:   ledger,
	}
}

// Compute tallies votes in the poll's option order, never by vote count.
func (a *resultsAggregator) Compute(ctx context.Context, pollID string) (*domain.Results, error) {
	poll, err := a.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	counts, err := a.ledger.CountsFor(ctx, poll)
	if err != nil {
		return nil, err
	}

	results := &domain.Results{
		PollID:  poll.ID,
		Tallies: make([]domain.ResultTally, 0, len(poll.Options)),
	}
	for _, opt := range poll.Options {
		results.TotalVotes += counts[opt]
	}
	for _, opt := range poll.Options {
		results.Tallies = append(results.Tallies, domain.ResultTally{
			Option:     opt,
			Votes:      counts[opt],
			Percentage: domain.Percentage(counts[opt], results.TotalVotes),
		})
	}

	return results, nil
}

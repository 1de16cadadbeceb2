package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type failingResultRepo struct {
	ports.PollResultRepository
}

func (failingResultRepo) SaveSnapshot(ctx context.Context, snapshots []domain.ResultSnapshot) error {
	return errors.New("disk full")
}

func TestSummarizeAllVotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	resultRepo := memory.NewPollResultRepository()
	summary := NewSummaryService(f.pollRepo, f.results, resultRepo, f.logger)

	colors, err := f.service.CreatePoll(ctx, ports.CreatePollInput{Question: "Color?", Options: []string{"Red", "Blue"}})
	require.NoError(t, err)
	empty, err := f.service.CreatePoll(ctx, ports.CreatePollInput{Question: "Empty?", Options: []string{"x", "y"}})
	require.NoError(t, err)

	for _, opt := range []string{"Red", "Red", "Red", "Blue"} {
		require.NoError(t, f.service.CastVote(ctx, ports.CastVoteInput{PollID: colors.ID, Option: opt}))
	}

	require.NoError(t, summary.SummarizeAllVotes(ctx))

	snaps, err := resultRepo.GetSnapshot(ctx, colors.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "Red", snaps[0].Option)
	assert.EqualValues(t, 3, snaps[0].VoteCount)
	assert.Equal(t, 75.0, snaps[0].Percentage)
	assert.Equal(t, "Blue", snaps[1].Option)
	assert.Equal(t, 25.0, snaps[1].Percentage)
	assert.False(t, snaps[0].LastUpdatedAt.IsZero())

	snaps, err = resultRepo.GetSnapshot(ctx, empty.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	for _, s := range snaps {
		assert.Zero(t, s.VoteCount)
		assert.Zero(t, s.Percentage)
	}
}

func TestSummarizeAllVotesReportsFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	summary := NewSummaryService(f.pollRepo, f.results, failingResultRepo{}, f.logger)

	_, err := f.service.CreatePoll(ctx, ports.CreatePollInput{Question: "Q?", Options: []string{"a", "b"}})
	require.NoError(t, err)

	err = summary.SummarizeAllVotes(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSummarizeAllVotesWithoutPolls(t *testing.T) {
	f := newFixture(t, false)
	summary := NewSummaryService(f.pollRepo, f.results, memory.NewPollResultRepository(), f.logger)
	assert.NoError(t, summary.SummarizeAllVotes(context.Background()))
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, MigrateUp(ctx, db, "migrations"))
	return db
}

func newPoll(question string, options ...string) *domain.Poll {
	return &domain.Poll{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   options,
		CreatedAt: time.Now().UTC(),
	}
}

func newVote(pollID, option, voterID string) *domain.Vote {
	return &domain.Vote{
		ID:        uuid.NewString(),
		PollID:    pollID,
		Option:    option,
		VoterID:   voterID,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgresRepositories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	polls := NewPollRepository(db)
	votes := NewVoteRepository(db)
	results := NewPollResultRepository(db)

	t.Run("poll round trip keeps option order", func(t *testing.T) {
		poll := newPoll("Best color?", "Red", "Blue", "Green")
		require.NoError(t, polls.Save(ctx, poll))

		got, err := polls.GetByID(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, poll.Question, got.Question)
		assert.Equal(t, []string{"Red", "Blue", "Green"}, got.Options)
	})

	t.Run("missing and malformed ids are not found", func(t *testing.T) {
		_, err := polls.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrPollNotFound)

		_, err = polls.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})

	t.Run("list is insertion ordered and paginated", func(t *testing.T) {
		_, err := db.Exec("TRUNCATE polls, poll_options, votes, poll_results")
		require.NoError(t, err)

		var ids []string
		for i := 0; i < 5; i++ {
			p := newPoll(fmt.Sprintf("Q%d", i), "A", "B")
			require.NoError(t, polls.Save(ctx, p))
			ids = append(ids, p.ID)
		}

		page, err := polls.List(ctx, 3, 0)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, ids[0], page[0].ID)
		assert.Equal(t, "Q2", page[2].Question)

		page, err = polls.List(ctx, 3, 3)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[4], page[1].ID)

		page, err = polls.List(ctx, 0, 0)
		require.NoError(t, err)
		assert.Len(t, page, 5)

		page, err = polls.List(ctx, 10, math.MaxInt-10)
		require.NoError(t, err)
		assert.Empty(t, page)

		all, err := polls.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5)
		assert.Equal(t, []string{"A", "B"}, all[0].Options)
	})

	t.Run("votes are counted per option", func(t *testing.T) {
		poll := newPoll("Count?", "Yes", "No")
		require.NoError(t, polls.Save(ctx, poll))

		for i := 0; i < 3; i++ {
			require.NoError(t, votes.Append(ctx, newVote(poll.ID, "Yes", ""), false))
		}
		require.NoError(t, votes.Append(ctx, newVote(poll.ID, "No", ""), false))

		counts, err := votes.CountByOption(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"Yes": 3, "No": 1}, counts)
	})

	t.Run("unique voter policy", func(t *testing.T) {
		poll := newPoll("Once?", "Yes", "No")
		require.NoError(t, polls.Save(ctx, poll))

		require.NoError(t, votes.Append(ctx, newVote(poll.ID, "Yes", "voter-1"), true))
		err := votes.Append(ctx, newVote(poll.ID, "No", "voter-1"), true)
		assert.ErrorIs(t, err, domain.ErrDuplicateVote)

		// Without the policy the same voter is accepted again.
		require.NoError(t, votes.Append(ctx, newVote(poll.ID, "No", "voter-1"), false))
	})

	t.Run("unknown option is rejected by the schema", func(t *testing.T) {
		poll := newPoll("Schema?", "Yes", "No")
		require.NoError(t, polls.Save(ctx, poll))

		err := votes.Append(ctx, newVote(poll.ID, "Maybe", ""), false)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("concurrent appends are not lost", func(t *testing.T) {
		poll := newPoll("Race?", "A", "B")
		require.NoError(t, polls.Save(ctx, poll))

		const n = 40
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, votes.Append(ctx, newVote(poll.ID, "A", ""), false))
			}()
		}
		wg.Wait()

		counts, err := votes.CountByOption(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(n), counts["A"])
		assert.Zero(t, counts["B"])
	})

	t.Run("snapshots upsert in option order", func(t *testing.T) {
		poll := newPoll("Snapshot?", "Red", "Blue")
		require.NoError(t, polls.Save(ctx, poll))

		now := time.Now().UTC()
		require.NoError(t, results.SaveSnapshot(ctx, []domain.ResultSnapshot{
			{PollID: poll.ID, Option: "Red", VoteCount: 1, Percentage: 100, LastUpdatedAt: now},
			{PollID: poll.ID, Option: "Blue", VoteCount: 0, Percentage: 0, LastUpdatedAt: now},
		}))
		require.NoError(t, results.SaveSnapshot(ctx, []domain.ResultSnapshot{
			{PollID: poll.ID, Option: "Blue", VoteCount: 1, Percentage: 25, LastUpdatedAt: now},
			{PollID: poll.ID, Option: "Red", VoteCount: 3, Percentage: 75, LastUpdatedAt: now},
		}))

		got, err := results.GetSnapshot(ctx, poll.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Red", got[0].Option)
		assert.Equal(t, int64(3), got[0].VoteCount)
		assert.InDelta(t, 75.0, got[0].Percentage, 0.001)
		assert.Equal(t, "Blue", got[1].Option)
		assert.InDelta(t, 25.0, got[1].Percentage, 0.001)
	})
}

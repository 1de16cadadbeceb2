package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type voteRepository struct {
	db    *sql.DB
	retry retrier
}

func NewVoteRepository(db *sql.DB, opts ...Option) ports.VoteRepository {
	return &voteRepository{
		db:    db,
		retry: newRetrier(opts),
	}
}

// Append holds a transaction-scoped advisory lock on the poll, so the voter
// check and the insert are atomic across every server sharing the database.
func (r *voteRepository) Append(ctx context.Context, vote *domain.Vote, unique bool) error {
	return r.retry.run(ctx, func() error {
		return r.appendVote(ctx, vote, unique)
	})
}

func (r *voteRepository) appendVote(ctx context.Context, vote *domain.Vote, unique bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, vote.PollID); err != nil {
		return fmt.Errorf("failed to lock poll: %w", err)
	}

	if unique && vote.VoterID != "" {
		query := `SELECT 1 FROM votes WHERE poll_id = $1 AND voter_id = $2 LIMIT 1`
		var exists int
		err := tx.QueryRowContext(ctx, query, vote.PollID, vote.VoterID).Scan(&exists)
		if err == nil {
			return domain.ErrDuplicateVote
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check existing vote: %w", err)
		}
	}

	query := `
		INSERT INTO votes (id, poll_id, option, voter_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	voterID := sql.NullString{String: vote.VoterID, Valid: vote.VoterID != ""}
	_, err = tx.ExecContext(ctx, query, vote.ID, vote.PollID, vote.Option, voterID, vote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vote: %w", err)
	}
	return nil
}

func (r *voteRepository) CountByOption(ctx context.Context, pollID string) (map[string]int64, error) {
	query := `
		SELECT option, COUNT(*)
		FROM votes
		WHERE poll_id = $1
		GROUP BY option
	`

	var counts map[string]int64
	err := r.retry.run(ctx, func() error {
		rows, err := r.db.QueryContext(ctx, query, pollID)
		if err != nil {
			return fmt.Errorf("failed to count votes: %w", err)
		}
		defer rows.Close()

		counts = make(map[string]int64)
		for rows.Next() {
			var option string
			var n int64
			if err := rows.Scan(&option, &n); err != nil {
				return fmt.Errorf("failed to scan vote count: %w", err)
			}
			counts[option] = n
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating vote counts: %w", err)
		}
		return nil
	})
	return counts, err
}

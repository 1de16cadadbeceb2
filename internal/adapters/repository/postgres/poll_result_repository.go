package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollResultRepository struct {
	db    *sql.DB
	retry retrier
}

func NewPollResultRepository(db *sql.DB, opts ...Option) ports.PollResultRepository {
	return &pollResultRepository{
		db:    db,
		retry: newRetrier(opts),
	}
}

func (r *pollResultRepository) SaveSnapshot(ctx context.Context, snapshots []domain.ResultSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.retry.run(ctx, func() error {
		return r.saveSnapshot(ctx, snapshots)
	})
}

func (r *pollResultRepository) saveSnapshot(ctx context.Context, snapshots []domain.ResultSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO poll_results (poll_id, option, vote_count, percentage, last_updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (poll_id, option) DO UPDATE
		SET vote_count = EXCLUDED.vote_count,
		    percentage = EXCLUDED.percentage,
		    last_updated_at = EXCLUDED.last_updated_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		_, err := stmt.ExecContext(ctx, s.PollID, s.Option, s.VoteCount, s.Percentage, s.LastUpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to summarize votes for poll %s: %w", s.PollID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollResultRepository) GetSnapshot(ctx context.Context, pollID string) ([]domain.ResultSnapshot, error) {
	query := `
		SELECT pr.poll_id, pr.option, pr.vote_count, pr.percentage, pr.last_updated_at
		FROM poll_results pr
		JOIN poll_options po ON po.poll_id = pr.poll_id AND po.label = pr.option
		WHERE pr.poll_id = $1
		ORDER BY po.position
	`

	var snapshots []domain.ResultSnapshot
	err := r.retry.run(ctx, func() error {
		rows, err := r.db.QueryContext(ctx, query, pollID)
		if err != nil {
			return fmt.Errorf("failed to fetch poll results: %w", err)
		}
		defer rows.Close()

		snapshots = nil
		for rows.Next() {
			var s domain.ResultSnapshot
			if err := rows.Scan(&s.PollID, &s.Option, &s.VoteCount, &s.Percentage, &s.LastUpdatedAt); err != nil {
				return fmt.Errorf("failed to scan poll result: %w", err)
			}
			snapshots = append(snapshots, s)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating poll results: %w", err)
		}
		return nil
	})
	return snapshots, err
}

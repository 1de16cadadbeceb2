package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollRepository struct {
	db    *sql.DB
	retry retrier
}

func NewPollRepository(db *sql.DB, opts ...Option) ports.PollRepository {
	return &pollRepository{
		db:    db,
		retry: newRetrier(opts),
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	return r.retry.run(ctx, func() error {
		return r.save(ctx, poll)
	})
}

func (r *pollRepository) save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, question, created_at)
		VALUES ($1, $2, $3)
	`
	_, err = tx.ExecContext(ctx, queryPoll, poll.ID, poll.Question, poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	queryOption := `
		INSERT INTO poll_options (poll_id, position, label)
		VALUES ($1, $2, $3)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for i, opt := range poll.Options {
		_, err = stmt.ExecContext(ctx, poll.ID, i, opt)
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrPollNotFound
	}

	var poll *domain.Poll
	err := r.retry.run(ctx, func() error {
		var err error
		poll, err = r.getByID(ctx, id)
		return err
	})
	return poll, err
}

func (r *pollRepository) getByID(ctx context.Context, id string) (*domain.Poll, error) {
	queryPoll := `
		SELECT id, question, created_at
		FROM polls
		WHERE id = $1
	`

	var poll domain.Poll
	err := r.db.QueryRowContext(ctx, queryPoll, id).Scan(&poll.ID, &poll.Question, &poll.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	options, err := r.fetchOptions(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	return &poll, nil
}

func (r *pollRepository) List(ctx context.Context, limit, offset int) ([]domain.PollSummary, error) {
	query := `
		SELECT id, question
		FROM polls
		ORDER BY seq
		LIMIT $1 OFFSET $2
	`
	// LIMIT NULL lists everything.
	pageSize := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	offset = max(offset, 0)

	var summaries []domain.PollSummary
	err := r.retry.run(ctx, func() error {
		rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list polls: %w", err)
		}
		defer rows.Close()

		summaries = make([]domain.PollSummary, 0, max(limit, 0))
		for rows.Next() {
			var s domain.PollSummary
			if err := rows.Scan(&s.ID, &s.Question); err != nil {
				return fmt.Errorf("failed to scan poll: %w", err)
			}
			summaries = append(summaries, s)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating polls: %w", err)
		}
		return nil
	})
	return summaries, err
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	query := `
		SELECT id, question, created_at
		FROM polls
		ORDER BY seq
	`

	var polls []*domain.Poll
	err := r.retry.run(ctx, func() error {
		rows, err := r.db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to get all polls: %w", err)
		}
		defer rows.Close()

		polls, err = r.scanPolls(ctx, rows)
		return err
	})
	return polls, err
}

func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(&poll.ID, &poll.Question, &poll.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}

	// Options are loaded after the cursor is drained so the connection is free.
	for _, poll := range polls {
		options, err := r.fetchOptions(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		poll.Options = options
	}
	return polls, nil
}

func (r *pollRepository) fetchOptions(ctx context.Context, pollID string) ([]string, error) {
	queryOptions := `
		SELECT label
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, queryOptions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	var options []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

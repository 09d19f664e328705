package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sentimentwatch/internal/model"

	"github.com/lib/pq"
)

// ErrRunInProgress means another run already holds the running slot.
var ErrRunInProgress = errors.New("a run is already in progress")

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// ExpireStale fails running runs that started before cutoff.
func (r *RunRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = $1, completed_at = NOW(), error = 'run expired before completing'
		WHERE status = $2 AND started_at < $3
	`, model.RunFailed, model.RunRunning, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Claim inserts a running run. The partial unique index on status turns a
// second concurrent claim into ErrRunInProgress.
func (r *RunRepository) Claim(ctx context.Context, id string, startedAt time.Time) error {
	var claimed string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO runs(id, started_at, status)
		VALUES($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, id, startedAt, model.RunRunning).Scan(&claimed)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrRunInProgress
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrRunInProgress
	}

	return err
}

func (r *RunRepository) Complete(ctx context.Context, id string, itemsFound, itemsNew int, summary []byte) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = $1, completed_at = NOW(), items_found = $2, items_new = $3, summary = $4
		WHERE id = $5
	`, model.RunCompleted, itemsFound, itemsNew, summary, id)
	return err
}

func (r *RunRepository) Fail(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = $1, completed_at = NOW(), error = $2
		WHERE id = $3
	`, model.RunFailed, reason, id)
	return err
}

// LatestCompleted returns nil when no run has completed yet.
func (r *RunRepository) LatestCompleted(ctx context.Context) (*model.Run, error) {
	var (
		run      model.Run
		summary  []byte
		errorMsg sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, items_found, items_new, summary, status, error
		FROM runs
		WHERE status = $1
		ORDER BY completed_at DESC
		LIMIT 1
	`, model.RunCompleted).Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.ItemsFound, &run.ItemsNew,
		&summary, &run.Status, &errorMsg)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	run.Summary = summary
	run.Error = errorMsg.String
	return &run, nil
}

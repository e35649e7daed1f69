package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/151henry151/rompmusic-server/internal/domain"
	apperrors "github.com/151henry151/rompmusic-server/internal/errors"
)

const scanRunColumns = `id, status, triggered_by, files_discovered, files_processed,
	tracks_added, tracks_updated, tracks_removed, extract_errors, error_message,
	started_at, finished_at`

func scanScanRun(scanner interface{ Scan(dest ...any) error }) (*domain.ScanRun, error) {
	var r domain.ScanRun

	var (
		startedAt  string
		finishedAt sql.NullString
	)

	err := scanner.Scan(
		&r.ID,
		&r.Status,
		&r.TriggeredBy,
		&r.FilesDiscovered,
		&r.FilesProcessed,
		&r.TracksAdded,
		&r.TracksUpdated,
		&r.TracksRemoved,
		&r.ExtractErrors,
		&r.ErrorMessage,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	r.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	r.FinishedAt, err = parseNullableTime(finishedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// CreateScanRun inserts a new run and assigns its monotonic ID. The run's ID
// field is set on return.
func (s *Store) CreateScanRun(ctx context.Context, r *domain.ScanRun) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_runs (status, triggered_by, started_at)
		VALUES (?, ?, ?)`,
		string(r.Status), string(r.TriggeredBy), formatTime(r.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read scan run id: %w", err)
	}
	return nil
}

// UpdateScanRun persists the run's current status and counters.
func (s *Store) UpdateScanRun(ctx context.Context, r *domain.ScanRun) error {
	var finishedAt any
	if r.FinishedAt != nil {
		finishedAt = formatTime(*r.FinishedAt)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE scan_runs SET status = ?, files_discovered = ?, files_processed = ?,
			tracks_added = ?, tracks_updated = ?, tracks_removed = ?,
			extract_errors = ?, error_message = ?, finished_at = ?
		WHERE id = ?`,
		string(r.Status), r.FilesDiscovered, r.FilesProcessed,
		r.TracksAdded, r.TracksUpdated, r.TracksRemoved,
		r.ExtractErrors, r.ErrorMessage, finishedAt,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update scan run %d: %w", r.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NotFoundf("scan run %d not found", r.ID)
	}
	return nil
}

// GetScanRun retrieves a run by ID. Returns errors.ErrNotFound when absent.
func (s *Store) GetScanRun(ctx context.Context, runID int64) (*domain.ScanRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanRunColumns+` FROM scan_runs WHERE id = ?`, runID)

	r, err := scanScanRun(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("scan run %d not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// LatestScanRun returns the most recent run, or errors.ErrNotFound when no
// scan has ever run.
func (s *Store) LatestScanRun(ctx context.Context) (*domain.ScanRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanRunColumns+` FROM scan_runs ORDER BY id DESC LIMIT 1`)

	r, err := scanScanRun(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("no scan runs recorded")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListScanRuns returns runs newest-first, up to limit (0 means all).
func (s *Store) ListScanRuns(ctx context.Context, limit int) ([]*domain.ScanRun, error) {
	query := `SELECT ` + scanRunColumns + ` FROM scan_runs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}
	defer rows.Close()

	runs := []*domain.ScanRun{}
	for rows.Next() {
		r, err := scanScanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/shared"
)

// RunRepository implements models.Repository[*models.SyncRun] for the sync run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new sync run with a generated ID
func (r *RunRepository) Create(run *models.SyncRun) error {
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (
			id, status, dry_run, invoices_seen, invoices_synced, invoices_skipped,
			invoices_failed, error_message, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID(),
		run.Status(),
		run.DryRun(),
		run.Seen(),
		run.Synced(),
		run.Skipped(),
		run.Failed(),
		nullable(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return wrapInsertError("sync_runs", run.ID(), err)
	}

	return nil
}

// Get retrieves a sync run by ID
func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT
			id, status, dry_run, invoices_seen, invoices_synced, invoices_skipped,
			invoices_failed, error_message, started_at, completed_at, created_at, updated_at
		FROM sync_runs
		WHERE id = ?
	`

	run, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, id)
	}
	return run, err
}

// Update persists the status, counters and completion time of a run
func (r *RunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET status = ?, invoices_seen = ?, invoices_synced = ?, invoices_skipped = ?,
			invoices_failed = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.Status(),
		run.Seen(),
		run.Synced(),
		run.Skipped(),
		run.Failed(),
		nullable(run.ErrorMessage()),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	return expectAffected(result, "sync run", run.ID())
}

// Delete removes a sync run by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM sync_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}
	return expectAffected(result, "sync run", id)
}

// List retrieves sync runs, most recent first.
//
// Supported criteria: "status" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `
		SELECT
			id, status, dry_run, invoices_seen, invoices_synced, invoices_skipped,
			invoices_failed, error_message, started_at, completed_at, created_at, updated_at
		FROM sync_runs
		WHERE 1 = 1
	`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY started_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) scan(row rowScanner) (*models.SyncRun, error) {
	var (
		id           string
		status       string
		dryRun       bool
		seen         int
		synced       int
		skipped      int
		failed       int
		errorMessage sql.NullString
		startedAt    time.Time
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&id, &status, &dryRun, &seen, &synced, &skipped,
		&failed, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run := models.NewSyncRun(dryRun)
	run.SetID(id)
	run.SetStatus(status)
	run.SetCounts(seen, synced, skipped, failed)
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}
	run.SetStartedAt(startedAt)
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	return run, nil
}

package models

import (
	"fmt"
	"time"
)

// Sync run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SyncRun tracks one execution of the invoice sync.
type SyncRun struct {
	id           string
	status       string
	dryRun       bool
	seen         int
	synced       int
	skipped      int
	failed       int
	errorMessage string
	startedAt    time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewSyncRun creates a running [SyncRun] started now.
func NewSyncRun(dryRun bool) *SyncRun {
	now := time.Now().UTC()
	return &SyncRun{
		status:    RunStatusRunning,
		dryRun:    dryRun,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *SyncRun) ID() string              { return r.id }
func (r *SyncRun) Status() string          { return r.status }
func (r *SyncRun) DryRun() bool            { return r.dryRun }
func (r *SyncRun) Seen() int               { return r.seen }
func (r *SyncRun) Synced() int             { return r.synced }
func (r *SyncRun) Skipped() int            { return r.skipped }
func (r *SyncRun) Failed() int             { return r.failed }
func (r *SyncRun) ErrorMessage() string    { return r.errorMessage }
func (r *SyncRun) StartedAt() time.Time    { return r.startedAt }
func (r *SyncRun) CompletedAt() *time.Time { return r.completedAt }
func (r *SyncRun) CreatedAt() time.Time    { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time    { return r.updatedAt }

func (r *SyncRun) SetID(id string)               { r.id = id }
func (r *SyncRun) SetStatus(s string)            { r.status = s }
func (r *SyncRun) SetErrorMessage(msg string)    { r.errorMessage = msg }
func (r *SyncRun) SetStartedAt(t time.Time)      { r.startedAt = t }
func (r *SyncRun) SetCompletedAt(t *time.Time)   { r.completedAt = t }
func (r *SyncRun) SetCreatedAt(t time.Time)      { r.createdAt = t }
func (r *SyncRun) SetUpdatedAt(t time.Time)      { r.updatedAt = t }
func (r *SyncRun) SetCounts(seen, synced, skipped, failed int) {
	r.seen, r.synced, r.skipped, r.failed = seen, synced, skipped, failed
}

// Finish marks the run completed, or failed when err is non-nil.
func (r *SyncRun) Finish(err error) {
	now := time.Now().UTC()
	r.completedAt = &now
	r.updatedAt = now
	if err != nil {
		r.status = RunStatusFailed
		r.errorMessage = err.Error()
		return
	}
	r.status = RunStatusCompleted
}

// Duration returns how long the run took, or has been running.
func (r *SyncRun) Duration() time.Duration {
	if r.completedAt == nil {
		return time.Since(r.startedAt)
	}
	return r.completedAt.Sub(r.startedAt)
}

// Validate checks the status and counters.
func (r *SyncRun) Validate() error {
	switch r.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("invalid status: %q", r.status)
	}
	if r.seen < 0 || r.synced < 0 || r.skipped < 0 || r.failed < 0 {
		return fmt.Errorf("counters must not be negative")
	}
	if r.synced+r.skipped+r.failed > r.seen {
		return fmt.Errorf("synced, skipped and failed exceed invoices seen")
	}
	return nil
}

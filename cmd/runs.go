package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hubtwin/internal/repositories"
)

type runJSON struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	DryRun      bool       `json:"dry_run"`
	Seen        int        `json:"invoices_seen"`
	Synced      int        `json:"invoices_synced"`
	Skipped     int        `json:"invoices_skipped"`
	Failed      int        `json:"invoices_failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunsList shows recent sync runs.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(map[string]any{
		"status": cmd.String("status"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, runJSON{
				ID:          run.ID(),
				Status:      run.Status(),
				DryRun:      run.DryRun(),
				Seen:        run.Seen(),
				Synced:      run.Synced(),
				Skipped:     run.Skipped(),
				Failed:      run.Failed(),
				Error:       run.ErrorMessage(),
				StartedAt:   run.StartedAt(),
				CompletedAt: run.CompletedAt(),
			})
		}
		return r.writeJSON(out, true)
	}

	if len(runs) == 0 {
		r.writePlain("No sync runs recorded\n")
		return nil
	}

	r.writePlain("Sync runs (%d):\n\n", len(runs))
	for _, run := range runs {
		mode := ""
		if run.DryRun() {
			mode = " (dry run)"
		}
		r.writePlain("%s  %s  %-9s%s  seen %d, synced %d, skipped %d, failed %d\n",
			run.StartedAt().Local().Format(time.DateTime), run.ID(), run.Status(), mode,
			run.Seen(), run.Synced(), run.Skipped(), run.Failed())
		if msg := run.ErrorMessage(); msg != "" {
			r.writePlain("    error: %s\n", msg)
		}
	}
	return nil
}

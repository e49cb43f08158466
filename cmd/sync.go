package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hubtwin/internal/formatter"
	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/repositories"
	"github.com/desertthunder/hubtwin/internal/services"
	"github.com/desertthunder/hubtwin/internal/shared"
	"github.com/desertthunder/hubtwin/internal/tasks"
	"github.com/desertthunder/hubtwin/internal/telemetry"
	"github.com/desertthunder/hubtwin/internal/ui"
)

// SyncRun runs a full HubSpot → Twinfield sync.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.RunOpts{DryRun: cmd.Bool("dry-run")}
	reportPath := cmd.String("report")

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.config.ValidateTwinfield(); err != nil {
		return err
	}

	crm, err := r.hubspot()
	if err != nil {
		return err
	}

	tokens, err := r.twinfieldTokens(ctx, opts.DryRun)
	if err != nil {
		return err
	}

	tw := r.config.Credentials.Twinfield
	accounting, err := services.NewTwinfieldClient(tw.Endpoint, tw.CompanyCode, tokens, r.retryClient(), r.logger)
	if err != nil {
		return err
	}

	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	tel, err := telemetry.New(r.config.Telemetry, telemetry.WithLogger(r.logger), telemetry.WithVersion(version))
	if err != nil {
		return err
	}
	defer tel.Shutdown(context.Background())

	newEngine := func(logger tasks.EngineOption) *tasks.Engine {
		return tasks.NewEngine(crm, accounting,
			repositories.NewLedgerRepository(db),
			models.OptionsFromConfig(r.config.Sync, tw.CompanyCode),
			tasks.WithRunStore(repositories.NewRunRepository(db)),
			tasks.WithTelemetry(tel),
			tasks.WithInvoiceStatus(r.config.Sync.InvoiceStatus),
			logger,
		)
	}

	r.logger.Info("starting sync", "dry_run", opts.DryRun)

	var result *tasks.SyncResult
	if cmd.Bool("tui") {
		result, err = r.runTUI(ctx, newEngine, opts)
	} else {
		result, err = r.runPlain(ctx, newEngine(tasks.WithLogger(r.logger)), opts)
	}

	if !opts.DryRun {
		r.persistToken(tokens)
	}

	if result != nil && reportPath != "" {
		path, reportErr := formatter.WriteReport(result, reportPath, format)
		if reportErr != nil {
			r.logger.Error("failed to write report", "error", reportErr)
		} else {
			r.writePlain("Report written to %s\n", path)
		}
	}

	return err
}

// twinfieldTokens returns a refreshing token source for the stored tokens. Dry runs never post, so they do not
// require tokens.
func (r *Runner) twinfieldTokens(ctx context.Context, dryRun bool) (oauth2.TokenSource, error) {
	tw := r.config.Credentials.Twinfield
	token := services.TokenFromConfig(tw)
	if token == nil {
		if dryRun {
			return oauth2.StaticTokenSource(&oauth2.Token{}), nil
		}
		return nil, fmt.Errorf("%w: no Twinfield tokens stored, run 'hubtwin auth login'", shared.ErrMissingCredentials)
	}

	auth, err := r.twinfieldAuth(tw)
	if err != nil {
		return nil, err
	}
	return auth.TokenSource(ctx, token), nil
}

// persistToken saves a refreshed access token back to the config file.
func (r *Runner) persistToken(tokens oauth2.TokenSource) {
	token, err := tokens.Token()
	if err != nil {
		r.logger.Debug("no token to persist", "error", err)
		return
	}
	if token.AccessToken == r.config.Credentials.Twinfield.AccessToken {
		return
	}

	services.StoreToken(&r.config.Credentials.Twinfield, token)
	if err := r.saveConfig(); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Info("refreshed Twinfield token saved", "path", r.configPath)
}

func (r *Runner) runPlain(ctx context.Context, engine *tasks.Engine, opts tasks.RunOpts) (*tasks.SyncResult, error) {
	if opts.DryRun {
		r.writePlain("%s\n\n", ui.Warning("Dry run: transactions are built but not posted"))
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchInvoices:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ProcessInvoices:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Run(ctx, progressCh, opts)
	close(progressCh)
	<-done

	if err != nil {
		return result, err
	}

	r.writePlain("\n")
	if opts.DryRun {
		r.writePlainHeader("Dry Run Complete")
	} else {
		r.writePlainHeader("Sync Complete")
	}
	r.writePlain("Run:      %s\n", result.RunID)
	r.writePlain("Invoices: %d\n", result.Seen)
	if opts.DryRun {
		r.writePlain("Would sync: %d\n", result.WouldSync)
	} else {
		r.writePlain("Synced:   %d\n", result.Synced)
	}
	r.writePlain("Skipped:  %d\n", result.Skipped)
	r.writePlain("Failed:   %d\n", result.Failed)

	if result.Failed > 0 {
		r.writePlain("\n%s\n", ui.Warning(fmt.Sprintf("Failed to sync %d invoices:", result.Failed)))
		for _, inv := range result.Invoices {
			if inv.Outcome == tasks.OutcomeFailed {
				r.writePlain("  - %s: %s\n", inv.Invoice.Label(), inv.Reason)
			}
		}
	}

	return result, nil
}

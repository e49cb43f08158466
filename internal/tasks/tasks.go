package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/services"
	"github.com/desertthunder/hubtwin/internal/shared"
	"github.com/desertthunder/hubtwin/internal/telemetry"
)

// Outcome classifies what happened to one invoice.
type Outcome string

const (
	OutcomeSynced    Outcome = "synced"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomeWouldSync Outcome = "would_sync"
)

// Symbol returns a one-character marker for console output.
func (o Outcome) Symbol() string {
	switch o {
	case OutcomeSynced:
		return "✓"
	case OutcomeFailed:
		return "✗"
	case OutcomeWouldSync:
		return "→"
	default:
		return "-"
	}
}

// InvoiceResult is the outcome for a single invoice.
type InvoiceResult struct {
	Invoice        models.Invoice
	CompanyID      string
	RelationNumber string
	Outcome        Outcome
	Reason         string              // skip reason or failure message
	Messages       []string            // messages reported by the accounting service
	Transaction    *models.Transaction // nil when skipped before the transaction was built
	Err            error
}

// SyncResult contains all data from a sync run.
type SyncResult struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Invoices   []InvoiceResult
	Seen       int
	Synced     int
	Skipped    int
	Failed     int
	WouldSync  int
}

// Duration returns how long the run took.
func (r *SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary renders the counters on one line.
func (r *SyncResult) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("%d invoices: %d would sync, %d skipped, %d failed (dry run)", r.Seen, r.WouldSync, r.Skipped, r.Failed)
	}
	return fmt.Sprintf("%d invoices: %d synced, %d skipped, %d failed", r.Seen, r.Synced, r.Skipped, r.Failed)
}

func (r *SyncResult) add(res InvoiceResult) {
	r.Invoices = append(r.Invoices, res)
	switch res.Outcome {
	case OutcomeSynced:
		r.Synced++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	case OutcomeWouldSync:
		r.WouldSync++
	}
}

// RunOpts controls a single sync run.
type RunOpts struct {
	DryRun bool
}

// Ledger records invoices that were accepted by the accounting service.
type Ledger interface {
	Has(invoiceID string) (bool, error)
	Create(entry *models.LedgerEntry) error
}

// RunStore persists sync runs.
type RunStore interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
}

// Engine syncs invoices from a CRM into an accounting service.
type Engine struct {
	crm        services.CRM
	accounting services.Accounting
	ledger     Ledger
	runs       RunStore
	opts       models.TransactionOptions
	status     string
	logger     *log.Logger
	telemetry  *telemetry.Telemetry
	tracer     trace.Tracer
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithRunStore records every run.
func WithRunStore(runs RunStore) EngineOption {
	return func(e *Engine) { e.runs = runs }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithTelemetry sets the tracer and counters.
func WithTelemetry(t *telemetry.Telemetry) EngineOption {
	return func(e *Engine) { e.telemetry = t }
}

// WithInvoiceStatus overrides the status an invoice must have to be synced (default "paid").
func WithInvoiceStatus(status string) EngineOption {
	return func(e *Engine) {
		if status != "" {
			e.status = status
		}
	}
}

// NewEngine creates an [Engine] with the provided services.
func NewEngine(crm services.CRM, accounting services.Accounting, ledger Ledger, opts models.TransactionOptions, options ...EngineOption) *Engine {
	e := &Engine{
		crm:        crm,
		accounting: accounting,
		ledger:     ledger,
		opts:       opts,
		status:     "paid",
	}
	for _, o := range options {
		o(e)
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if e.telemetry == nil {
		e.telemetry = telemetry.Noop()
	}
	e.tracer = e.telemetry.Tracer("tasks")
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run syncs every invoice returned by the CRM.
//
// Per-invoice failures are counted in the result. An error is returned only when the invoice list cannot
// be fetched, the run cannot be recorded, or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts RunOpts) (*SyncResult, error) {
	if e.crm == nil {
		return nil, fmt.Errorf("%w: CRM service not initialized", shared.ErrServiceUnavailable)
	}
	if e.accounting == nil {
		return nil, fmt.Errorf("%w: accounting service not initialized", shared.ErrServiceUnavailable)
	}
	if e.ledger == nil {
		return nil, fmt.Errorf("%w: ledger not initialized", shared.ErrServiceUnavailable)
	}

	run := models.NewSyncRun(opts.DryRun)
	run.SetID(shared.GenerateID())
	if e.runs != nil {
		if err := e.runs.Create(run); err != nil {
			return nil, fmt.Errorf("failed to record sync run: %w", err)
		}
	}

	ctx, span := e.tracer.Start(ctx, "sync.run", trace.WithAttributes(
		attribute.String(telemetry.AttrRunID, run.ID()),
		attribute.Bool(telemetry.AttrDryRun, opts.DryRun),
	))
	defer span.End()

	logger := shared.WithLogger(e.logger, "run", run.ID())
	result := &SyncResult{RunID: run.ID(), DryRun: opts.DryRun, StartedAt: run.StartedAt()}

	runErr := e.run(ctx, logger, run, result, progress)

	result.FinishedAt = time.Now().UTC()
	run.SetCounts(result.Seen, result.Synced+result.WouldSync, result.Skipped, result.Failed)
	run.Finish(runErr)
	if e.runs != nil {
		if err := e.runs.Update(run); err != nil {
			logger.Error("failed to update sync run", "error", err)
		}
	}

	e.telemetry.Metrics().RecordRun(ctx, result.Duration().Seconds(), opts.DryRun)
	span.SetAttributes(
		attribute.Int("sync.seen", result.Seen),
		attribute.Int("sync.synced", result.Synced),
		attribute.Int("sync.skipped", result.Skipped),
		attribute.Int("sync.failed", result.Failed),
	)

	if runErr != nil {
		telemetry.RecordError(span, runErr)
		return result, runErr
	}

	telemetry.SetSpanSuccess(span)
	logger.Info("sync finished", "summary", result.Summary(), "duration", result.Duration())
	e.sendProgress(progress, completeUpdate(result))
	return result, nil
}

func (e *Engine) run(ctx context.Context, logger *log.Logger, run *models.SyncRun, result *SyncResult, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, fetchInvoicesUpdate())

	invoices, err := e.crm.ListInvoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list invoices from %s: %w", e.crm.Name(), err)
	}

	total := len(invoices)
	result.Seen = total
	logger.Info("fetched invoices", "count", total, "source", e.crm.Name())
	e.sendProgress(progress, foundInvoicesUpdate(total))

	for i, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := e.syncInvoice(ctx, logger, run, inv)
		result.add(res)
		e.telemetry.Metrics().RecordInvoice(ctx, string(res.Outcome))
		e.sendProgress(progress, invoiceUpdate(i+1, total, &result.Invoices[len(result.Invoices)-1]))
	}
	return nil
}

// syncInvoice runs the pipeline for a single invoice and never returns an error.
func (e *Engine) syncInvoice(ctx context.Context, logger *log.Logger, run *models.SyncRun, inv models.Invoice) InvoiceResult {
	ctx, span := e.tracer.Start(ctx, "sync.invoice", trace.WithAttributes(
		telemetry.InvoiceAttributes(inv.ID, inv.Number, inv.Status)...,
	))
	defer span.End()

	logger = shared.WithLogger(logger, "invoice", inv.Label())
	res := InvoiceResult{Invoice: inv}

	skip := func(reason string) InvoiceResult {
		res.Outcome, res.Reason = OutcomeSkipped, reason
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(res.Outcome)))
		logger.Debug("skipped", "reason", reason)
		return res
	}
	fail := func(err error) InvoiceResult {
		res.Outcome, res.Reason, res.Err = OutcomeFailed, err.Error(), err
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(res.Outcome)))
		telemetry.RecordError(span, err)
		logger.Error("failed", "error", err)
		return res
	}

	if !strings.EqualFold(inv.Status, e.status) {
		return skip(fmt.Sprintf("status is %q", inv.Status))
	}

	synced, err := e.ledger.Has(inv.ID)
	if err != nil {
		return fail(err)
	}
	if synced {
		return skip("already synced")
	}

	company, err := e.resolveCompany(ctx, inv)
	if err != nil {
		return fail(err)
	}
	res.CompanyID, res.RelationNumber = company.ID, company.RelationNumber

	items, err := e.resolveLineItems(ctx, inv)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.Int(telemetry.AttrLineItems, len(items)))

	tx, err := models.BuildTransaction(e.opts, inv, company.RelationNumber, items)
	if err != nil {
		return fail(err)
	}
	res.Transaction = tx

	if run.DryRun() {
		res.Outcome = OutcomeWouldSync
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(res.Outcome)))
		telemetry.SetSpanSuccess(span)
		logger.Info("would sync", "relation", company.RelationNumber, "lines", len(tx.Lines))
		return res
	}

	processed, err := e.accounting.Process(ctx, tx)
	if err != nil {
		return fail(fmt.Errorf("failed to post to %s: %w", e.accounting.Name(), err))
	}
	if !processed.OK {
		res.Messages = processed.Messages
		return fail(fmt.Errorf("%w: %s", shared.ErrTransaction, strings.Join(processed.Messages, "; ")))
	}

	entry := models.NewLedgerEntry(inv.ID, inv.Number, company.ID, company.RelationNumber, inv.AmountBilled)
	entry.SetRunID(run.ID())
	if err := e.ledger.Create(entry); err != nil {
		return fail(fmt.Errorf("transaction posted but not recorded in ledger: %w", err))
	}

	res.Outcome = OutcomeSynced
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(res.Outcome)))
	telemetry.SetSpanSuccess(span)
	logger.Info("synced", "relation", company.RelationNumber, "lines", len(tx.Lines))
	return res
}

// resolveCompany returns the first company associated with the invoice.
func (e *Engine) resolveCompany(ctx context.Context, inv models.Invoice) (*models.Company, error) {
	ids, err := e.crm.InvoiceAssociations(ctx, inv.ID, services.ToCompanies)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: invoice %s has no associated company", shared.ErrAssociation, inv.Label())
	}

	company, err := e.crm.GetCompany(ctx, ids[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get company %s: %w", ids[0], err)
	}
	if company.RelationNumber == "" {
		return nil, fmt.Errorf("%w: company %s", shared.ErrMissingRelation, company.ID)
	}
	return company, nil
}

func (e *Engine) resolveLineItems(ctx context.Context, inv models.Invoice) ([]models.LineItem, error) {
	ids, err := e.crm.InvoiceAssociations(ctx, inv.ID, services.ToLineItems)
	if err != nil {
		return nil, err
	}

	items := make([]models.LineItem, 0, len(ids))
	for _, id := range ids {
		item, err := e.crm.GetLineItem(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get line item %s: %w", id, err)
		}
		items = append(items, *item)
	}
	return items, nil
}

// IsCancelled reports whether err comes from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hubtwin/internal/repositories"
	"github.com/desertthunder/hubtwin/internal/shared"
)

type ledgerEntryJSON struct {
	InvoiceID      string    `json:"invoice_id"`
	InvoiceNumber  string    `json:"invoice_number"`
	CompanyID      string    `json:"company_id,omitempty"`
	RelationNumber string    `json:"relation_number,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	RunID          string    `json:"run_id,omitempty"`
	SyncedAt       time.Time `json:"synced_at"`
}

// LedgerList lists invoices already posted to Twinfield.
func (r *Runner) LedgerList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := repositories.NewLedgerRepository(db).List(map[string]any{
		"run_id": cmd.String("run"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]ledgerEntryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, ledgerEntryJSON{
				InvoiceID:      e.ID(),
				InvoiceNumber:  e.InvoiceNumber(),
				CompanyID:      e.CompanyID(),
				RelationNumber: e.RelationNumber(),
				Amount:         e.Amount(),
				RunID:          e.RunID(),
				SyncedAt:       e.SyncedAt(),
			})
		}
		return r.writeJSON(out, true)
	}

	if len(entries) == 0 {
		r.writePlain("No synced invoices\n")
		return nil
	}

	r.writePlain("Synced invoices (%d):\n\n", len(entries))
	for _, e := range entries {
		r.writePlain("%s  %s[%s]  relation %s  %s\n",
			e.SyncedAt().Local().Format(time.DateTime), e.InvoiceNumber(), e.ID(), e.RelationNumber(), e.Amount())
	}
	return nil
}

// LedgerForget removes an invoice from the ledger so the next sync posts it again.
func (r *Runner) LedgerForget(ctx context.Context, cmd *cli.Command) error {
	invoiceID := cmd.StringArg("invoice-id")
	if invoiceID == "" {
		return fmt.Errorf("%w: invoice-id", shared.ErrMissingArgument)
	}

	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewLedgerRepository(db).Delete(invoiceID); err != nil {
		return err
	}

	r.logger.Info("removed invoice from ledger", "invoice_id", invoiceID)
	r.writePlain("✓ Invoice %s will be synced again on the next run\n", invoiceID)
	return nil
}

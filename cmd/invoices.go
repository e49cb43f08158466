package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hubtwin/internal/models"
)

type invoiceJSON struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	Status       string `json:"status"`
	AmountBilled string `json:"amount_billed"`
	BalanceDue   string `json:"balance_due"`
	InvoiceDate  string `json:"invoice_date"`
	DueDate      string `json:"due_date,omitempty"`
}

// InvoicesList lists HubSpot invoices, optionally filtered by status.
func (r *Runner) InvoicesList(ctx context.Context, cmd *cli.Command) error {
	status := cmd.String("status")

	client, err := r.hubspot()
	if err != nil {
		return err
	}

	r.logger.Debug("fetching invoices", "status", status)
	invoices, err := client.ListInvoices(ctx)
	if err != nil {
		return err
	}

	if status != "" {
		filtered := make([]models.Invoice, 0, len(invoices))
		for _, inv := range invoices {
			if strings.EqualFold(inv.Status, status) {
				filtered = append(filtered, inv)
			}
		}
		invoices = filtered
	}

	if cmd.Bool("json") {
		out := make([]invoiceJSON, 0, len(invoices))
		for _, inv := range invoices {
			out = append(out, invoiceJSON{
				ID:           inv.ID,
				Number:       inv.Number,
				Status:       inv.Status,
				AmountBilled: inv.AmountBilled,
				BalanceDue:   inv.BalanceDue,
				InvoiceDate:  inv.InvoiceDate,
				DueDate:      inv.DueDate,
			})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d invoices:\n\n", len(invoices))
	for i, inv := range invoices {
		r.writePlain("%d. %s  %s  %s\n", i+1, inv.Label(), inv.Status, inv.AmountBilled)
	}
	return nil
}

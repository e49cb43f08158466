package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/hubtwin/internal/shared"
)

const (
	LineTypeTotal  = "total"
	LineTypeDetail = "detail"
	Debit          = "debit"
	Credit         = "credit"
)

// Transaction is a Twinfield sales transaction.
type Transaction struct {
	Office        string
	Journal       string
	Period        string // YYYY/MM
	Date          string // YYYYMMDD
	DueDate       string // YYYYMMDD
	Currency      string
	InvoiceNumber string
	Lines         []TransactionLine
}

// TransactionLine is one line of a [Transaction]. Line 1 is always the total line.
type TransactionLine struct {
	ID          int
	Type        string
	Value       string
	DebitCredit string
	Dim1        string
	Dim2        string
	Description string
	VATCode     string
	VATValue    string
}

// TransactionOptions carries the bookkeeping constants applied to every transaction.
type TransactionOptions struct {
	Office            string
	Journal           string
	Currency          string
	ReceivableAccount string
	VATCode           string
}

// OptionsFromConfig builds [TransactionOptions] from the sync config section and the Twinfield company code.
func OptionsFromConfig(sc shared.SyncConfig, office string) TransactionOptions {
	return TransactionOptions{
		Office:            office,
		Journal:           sc.JournalCode,
		Currency:          sc.Currency,
		ReceivableAccount: sc.ReceivableAccount,
		VATCode:           sc.VATCode,
	}
}

// BuildTransaction turns an invoice, the debtor's relation number and its line items into a [Transaction].
//
// The total line debits the receivable account for the billed amount; every line item becomes a credit
// detail line on its own ledger account and cost centre.
func BuildTransaction(opts TransactionOptions, inv Invoice, relationNumber string, items []LineItem) (*Transaction, error) {
	if relationNumber == "" {
		return nil, fmt.Errorf("%w: invoice %s", shared.ErrMissingRelation, inv.Label())
	}

	invoiceDate, err := ParseDate(inv.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: hs_invoice_date: %w", inv.Label(), err)
	}
	dueDate, err := ParseDate(inv.DueDate)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: hs_due_date: %w", inv.Label(), err)
	}

	tx := &Transaction{
		Office:        opts.Office,
		Journal:       opts.Journal,
		Period:        invoiceDate.Format("2006/01"),
		Date:          invoiceDate.Format("20060102"),
		DueDate:       dueDate.Format("20060102"),
		Currency:      opts.Currency,
		InvoiceNumber: inv.Number,
		Lines:         make([]TransactionLine, 0, len(items)+1),
	}

	tx.Lines = append(tx.Lines, TransactionLine{
		ID:          1,
		Type:        LineTypeTotal,
		Value:       inv.AmountBilled,
		DebitCredit: Debit,
		Dim1:        opts.ReceivableAccount,
		Dim2:        relationNumber,
	})

	for i, item := range items {
		tx.Lines = append(tx.Lines, TransactionLine{
			ID:          i + 2,
			Type:        LineTypeDetail,
			Value:       item.Amount,
			DebitCredit: Credit,
			Dim1:        item.LedgerAccount,
			Dim2:        item.CostCenter,
			Description: item.Name,
			VATCode:     opts.VATCode,
			VATValue:    "0",
		})
	}

	return tx, nil
}

// ParseDate parses HubSpot date values: RFC 3339 timestamps, plain dates, or epoch milliseconds.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", shared.ErrInvalidInput)
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", shared.ErrInvalidInput, value)
}

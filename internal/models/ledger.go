package models

import (
	"fmt"
	"time"
)

// LedgerEntry records an invoice that Twinfield accepted, so later runs skip it.
type LedgerEntry struct {
	invoiceID      string
	invoiceNumber  string
	companyID      string
	relationNumber string
	amount         string
	runID          string
	syncedAt       time.Time
}

// NewLedgerEntry creates a [LedgerEntry] stamped with the current time.
func NewLedgerEntry(invoiceID, invoiceNumber, companyID, relationNumber, amount string) *LedgerEntry {
	return &LedgerEntry{
		invoiceID:      invoiceID,
		invoiceNumber:  invoiceNumber,
		companyID:      companyID,
		relationNumber: relationNumber,
		amount:         amount,
		syncedAt:       time.Now().UTC(),
	}
}

func (e *LedgerEntry) ID() string             { return e.invoiceID }
func (e *LedgerEntry) CreatedAt() time.Time   { return e.syncedAt }
func (e *LedgerEntry) UpdatedAt() time.Time   { return e.syncedAt }
func (e *LedgerEntry) InvoiceNumber() string  { return e.invoiceNumber }
func (e *LedgerEntry) CompanyID() string      { return e.companyID }
func (e *LedgerEntry) RelationNumber() string { return e.relationNumber }
func (e *LedgerEntry) Amount() string         { return e.amount }
func (e *LedgerEntry) RunID() string          { return e.runID }
func (e *LedgerEntry) SyncedAt() time.Time    { return e.syncedAt }

func (e *LedgerEntry) SetRunID(id string)         { e.runID = id }
func (e *LedgerEntry) SetSyncedAt(t time.Time)    { e.syncedAt = t }
func (e *LedgerEntry) SetCompanyID(id string)     { e.companyID = id }
func (e *LedgerEntry) SetRelationNumber(n string) { e.relationNumber = n }

// Validate requires the invoice ID.
func (e *LedgerEntry) Validate() error {
	if e.invoiceID == "" {
		return fmt.Errorf("invoice_id is required")
	}
	return nil
}

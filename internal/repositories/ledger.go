package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/shared"
)

// LedgerRepository implements models.Repository[*models.LedgerEntry] for the synced invoice ledger.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a new LedgerRepository with the given database connection
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Has reports whether the invoice has already been synced.
func (r *LedgerRepository) Has(invoiceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM synced_invoices WHERE invoice_id = ?)", invoiceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return exists, nil
}

// Create records a synced invoice.
func (r *LedgerRepository) Create(entry *models.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO synced_invoices (invoice_id, invoice_number, company_id, relation_number, amount, run_id, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		entry.ID(),
		entry.InvoiceNumber(),
		entry.CompanyID(),
		entry.RelationNumber(),
		entry.Amount(),
		nullable(entry.RunID()),
		entry.SyncedAt(),
	)
	if err != nil {
		return wrapInsertError("synced_invoices", entry.ID(), err)
	}
	return nil
}

// Get retrieves a ledger entry by invoice ID
func (r *LedgerRepository) Get(invoiceID string) (*models.LedgerEntry, error) {
	query := `
		SELECT invoice_id, invoice_number, company_id, relation_number, amount, run_id, synced_at
		FROM synced_invoices
		WHERE invoice_id = ?
	`

	entry, err := r.scan(r.db.QueryRow(query, invoiceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %s", shared.ErrNotFound, invoiceID)
	}
	return entry, err
}

// Update rewrites the relation, company and run of an existing entry.
func (r *LedgerRepository) Update(entry *models.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.Exec(`
		UPDATE synced_invoices
		SET invoice_number = ?, company_id = ?, relation_number = ?, amount = ?, run_id = ?
		WHERE invoice_id = ?
	`, entry.InvoiceNumber(), entry.CompanyID(), entry.RelationNumber(), entry.Amount(), nullable(entry.RunID()), entry.ID())
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	return expectAffected(result, "invoice", entry.ID())
}

// Delete forgets an invoice so the next run syncs it again.
func (r *LedgerRepository) Delete(invoiceID string) error {
	result, err := r.db.Exec("DELETE FROM synced_invoices WHERE invoice_id = ?", invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	return expectAffected(result, "invoice", invoiceID)
}

// List retrieves ledger entries, newest first.
//
// Supported criteria: "run_id" (string), "relation_number" (string), "limit" (int).
func (r *LedgerRepository) List(criteria map[string]any) ([]*models.LedgerEntry, error) {
	query := `
		SELECT invoice_id, invoice_number, company_id, relation_number, amount, run_id, synced_at
		FROM synced_invoices
		WHERE 1 = 1
	`
	args := []any{}

	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	if relation, ok := criteria["relation_number"].(string); ok && relation != "" {
		query += " AND relation_number = ?"
		args = append(args, relation)
	}

	query += " ORDER BY synced_at DESC, invoice_id"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

func (r *LedgerRepository) scan(row rowScanner) (*models.LedgerEntry, error) {
	var (
		entry  *models.LedgerEntry
		id     string
		number string
		compID string
		rel    string
		amount string
		runID  sql.NullString
		synced sql.NullTime
	)

	if err := row.Scan(&id, &number, &compID, &rel, &amount, &runID, &synced); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	entry = models.NewLedgerEntry(id, number, compID, rel, amount)
	if runID.Valid {
		entry.SetRunID(runID.String)
	}
	if synced.Valid {
		entry.SetSyncedAt(synced.Time)
	}
	return entry, nil
}

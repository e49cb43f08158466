// package formatter renders sync run reports in various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/hubtwin/internal/shared"
	"github.com/desertthunder/hubtwin/internal/tasks"
)

// Format names a report format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Formats lists the supported report formats.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ParseFormat accepts a format name or its common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

// ExportToCSV converts a SyncResult to CSV format with one row per invoice
func ExportToCSV(res *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Invoice ID", "Number", "Status", "Amount", "Company ID", "Relation", "Outcome", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, inv := range res.Invoices {
		record := []string{
			inv.Invoice.ID,
			inv.Invoice.Number,
			inv.Invoice.Status,
			inv.Invoice.AmountBilled,
			inv.CompanyID,
			inv.RelationNumber,
			string(inv.Outcome),
			inv.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a SyncResult to Markdown with a summary and an invoice table
func ExportToMarkdown(res *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Sync run %s\n\n", res.RunID)
	if res.DryRun {
		buf.WriteString("> Dry run: nothing was posted to Twinfield.\n\n")
	}

	fmt.Fprintf(&buf, "**Started**: %s\n", res.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&buf, "**Duration**: %s\n", res.Duration().Round(time.Millisecond))
	fmt.Fprintf(&buf, "**Summary**: %s\n\n", res.Summary())

	buf.WriteString("## Invoices\n\n")
	if len(res.Invoices) == 0 {
		buf.WriteString("No invoices found.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| Invoice | Amount | Relation | Outcome | Reason |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, inv := range res.Invoices {
		fmt.Fprintf(&buf, "| %s | %s | %s | %s | %s |\n",
			escapeCell(inv.Invoice.Label()),
			escapeCell(inv.Invoice.AmountBilled),
			escapeCell(inv.RelationNumber),
			inv.Outcome,
			escapeCell(inv.Reason),
		)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a SyncResult to plain text format
func ExportToText(res *tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run: %s\n", res.RunID)
	fmt.Fprintf(&buf, "%s\n\n", res.Summary())

	for i, inv := range res.Invoices {
		fmt.Fprintf(&buf, "%d. %s %s", i+1, inv.Outcome.Symbol(), inv.Invoice.Label())
		if inv.Reason != "" {
			fmt.Fprintf(&buf, " (%s)", inv.Reason)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

type invoiceJSON struct {
	ID             string   `json:"id"`
	Number         string   `json:"number"`
	Status         string   `json:"status"`
	Amount         string   `json:"amount"`
	CompanyID      string   `json:"company_id,omitempty"`
	RelationNumber string   `json:"relation_number,omitempty"`
	Outcome        string   `json:"outcome"`
	Reason         string   `json:"reason,omitempty"`
	Messages       []string `json:"messages,omitempty"`
}

type reportJSON struct {
	RunID      string        `json:"run_id"`
	DryRun     bool          `json:"dry_run"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Seen       int           `json:"seen"`
	Synced     int           `json:"synced"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	WouldSync  int           `json:"would_sync"`
	Invoices   []invoiceJSON `json:"invoices"`
}

// ExportToJSON converts a SyncResult to indented JSON
func ExportToJSON(res *tasks.SyncResult) ([]byte, error) {
	report := reportJSON{
		RunID:      res.RunID,
		DryRun:     res.DryRun,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Seen:       res.Seen,
		Synced:     res.Synced,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		WouldSync:  res.WouldSync,
		Invoices:   make([]invoiceJSON, 0, len(res.Invoices)),
	}
	for _, inv := range res.Invoices {
		report.Invoices = append(report.Invoices, invoiceJSON{
			ID:             inv.Invoice.ID,
			Number:         inv.Invoice.Number,
			Status:         inv.Invoice.Status,
			Amount:         inv.Invoice.AmountBilled,
			CompanyID:      inv.CompanyID,
			RelationNumber: inv.RelationNumber,
			Outcome:        string(inv.Outcome),
			Reason:         inv.Reason,
			Messages:       inv.Messages,
		})
	}
	return shared.MarshalJSON(report, true)
}

// Render produces the report in the requested format.
func Render(res *tasks.SyncResult, format Format) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil sync result", shared.ErrInvalidArgument)
	}

	switch format {
	case FormatCSV:
		return ExportToCSV(res)
	case FormatMarkdown:
		return ExportToMarkdown(res)
	case FormatText:
		return ExportToText(res)
	case FormatJSON:
		return ExportToJSON(res)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
}

// Write renders the report to w.
func Write(w io.Writer, res *tasks.SyncResult, format Format) error {
	data, err := Render(res, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReport writes the report to path and returns the path written.
//
// Defaults to sync_{run id}.{ext} as the filename.
func WriteReport(res *tasks.SyncResult, path string, format Format) (string, error) {
	data, err := Render(res, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("sync_%s.%s", res.RunID, format.Extension())
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

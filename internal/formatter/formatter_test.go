package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/shared"
	"github.com/desertthunder/hubtwin/internal/tasks"
	th "github.com/desertthunder/hubtwin/internal/testing"
)

func testResult() *tasks.SyncResult {
	started := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	return &tasks.SyncResult{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Seen:       3,
		Synced:     1,
		Skipped:    1,
		Failed:     1,
		Invoices: []tasks.InvoiceResult{
			{
				Invoice:        models.Invoice{ID: "1", Number: "INV-1", Status: "paid", AmountBilled: "121.00"},
				CompanyID:      "77",
				RelationNumber: "R123",
				Outcome:        tasks.OutcomeSynced,
			},
			{
				Invoice: models.Invoice{ID: "2", Number: "INV-2", Status: "open", AmountBilled: "50.00"},
				Outcome: tasks.OutcomeSkipped,
				Reason:  `status is "open"`,
			},
			{
				Invoice:        models.Invoice{ID: "3", Number: "INV-3", Status: "paid", AmountBilled: "10.00"},
				CompanyID:      "79",
				RelationNumber: "R9",
				Outcome:        tasks.OutcomeFailed,
				Reason:         "transaction rejected: Dimension R9 | unknown",
				Messages:       []string{"Dimension R9 | unknown"},
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testResult())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Invoice ID,Number,Status,Amount,Company ID,Relation,Outcome,Reason\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,INV-1,paid,121.00,77,R123,synced,\n") {
			t.Errorf("CSV missing synced row, got: %s", output)
		}
		if !strings.Contains(output, `2,INV-2,open,50.00,,,skipped,"status is ""open"""`) {
			t.Errorf("CSV reason not quoted, got: %s", output)
		}
		if lines := strings.Count(output, "\n"); lines != 4 {
			t.Errorf("expected 4 lines, got %d", lines)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testResult())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Sync run run-1",
			"**Started**: 2024-03-15T09:00:00Z",
			"**Duration**: 1.5s",
			"**Summary**: 3 invoices: 1 synced, 1 skipped, 1 failed",
			"| INV-1[1] | 121.00 | R123 | synced |  |",
			`Dimension R9 \| unknown`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Dry run") {
			t.Error("unexpected dry run banner")
		}

		t.Run("dry run and empty", func(t *testing.T) {
			data, err := ExportToMarkdown(&tasks.SyncResult{RunID: "run-2", DryRun: true})
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			output := string(data)
			if !strings.Contains(output, "> Dry run") || !strings.Contains(output, "No invoices found.") {
				t.Errorf("unexpected output:\n%s", output)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testResult())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "1. ✓ INV-1[1]\n") {
			t.Errorf("Text missing synced line, got: %s", output)
		}
		if !strings.Contains(output, `2. - INV-2[2] (status is "open")`) {
			t.Errorf("Text missing skipped line, got: %s", output)
		}
		if !strings.Contains(output, "3. ✗ INV-3[3]") {
			t.Errorf("Text missing failed line, got: %s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testResult())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["run_id"] != "run-1" || decoded["failed"] != float64(1) {
			t.Errorf("unexpected report: %v", decoded)
		}

		invoices := decoded["invoices"].([]any)
		if len(invoices) != 3 {
			t.Fatalf("expected 3 invoices, got %d", len(invoices))
		}
		failed := invoices[2].(map[string]any)
		if failed["outcome"] != "failed" || len(failed["messages"].([]any)) != 1 {
			t.Errorf("unexpected failed invoice: %v", failed)
		}
		if _, ok := invoices[1].(map[string]any)["company_id"]; ok {
			t.Error("expected empty company_id to be omitted")
		}
	})
}

func TestFormats(t *testing.T) {
	t.Run("ParseFormat", func(t *testing.T) {
		tests := []struct {
			in   string
			want Format
		}{
			{"csv", FormatCSV},
			{"MD", FormatMarkdown},
			{"markdown", FormatMarkdown},
			{"txt", FormatText},
			{"", FormatText},
			{" json ", FormatJSON},
		}
		for _, tt := range tests {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		}

		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Extension", func(t *testing.T) {
		want := map[Format]string{FormatCSV: "csv", FormatMarkdown: "md", FormatText: "txt", FormatJSON: "json"}
		for _, f := range Formats {
			if f.Extension() != want[f] {
				t.Errorf("%s.Extension() = %q", f, f.Extension())
			}
		}
	})

	t.Run("Render rejects nil and unknown", func(t *testing.T) {
		if _, err := Render(nil, FormatCSV); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for nil, got %v", err)
		}
		if _, err := Render(testResult(), Format("yaml")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for yaml, got %v", err)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteReport default name", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		path, err := WriteReport(testResult(), "", FormatMarkdown)
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if path != "sync_run-1.md" {
			t.Errorf("unexpected default path %q", path)
		}
		th.AssertFileExists(t, filepath.Join(dir, path))
	})

	t.Run("WriteReport explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.csv")
		if _, err := WriteReport(testResult(), path, FormatCSV); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, "INV-3") {
			t.Errorf("unexpected report content: %s", content)
		}
	})

	t.Run("WriteReport bad directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "report.txt")
		if _, err := WriteReport(testResult(), path, FormatText); err == nil {
			t.Error("expected error for missing directory")
		}
	})

	t.Run("Write propagates writer errors", func(t *testing.T) {
		if err := Write(&th.FWriter{}, testResult(), FormatText); err == nil {
			t.Error("expected write error")
		}
	})
}

package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/hubtwin/internal/shared"
)

func testOptions() TransactionOptions {
	return TransactionOptions{
		Office:            "NL001",
		Journal:           "VRK",
		Currency:          "EUR",
		ReceivableAccount: "1300",
		VATCode:           "VN",
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"RFC 3339 UTC", "2024-03-15T00:00:00Z", "20240315"},
		{"RFC 3339 with millis", "2024-03-15T10:20:30.123Z", "20240315"},
		{"RFC 3339 with offset", "2024-03-15T23:30:00+01:00", "20240315"},
		{"no zone", "2024-03-15T08:00:00", "20240315"},
		{"date only", "2024-03-15", "20240315"},
		{"epoch millis", "1710460800000", "20240315"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Format("20060102") != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format("20060102"), tt.want)
			}
		})
	}

	t.Run("invalid", func(t *testing.T) {
		for _, input := range []string{"", "  ", "15/03/2024", "yesterday"} {
			if _, err := ParseDate(input); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("ParseDate(%q) expected ErrInvalidInput, got %v", input, err)
			}
		}
	})
}

func TestBuildTransaction(t *testing.T) {
	invoice := Invoice{
		ID:           "9001",
		Number:       "INV-0042",
		Status:       "paid",
		AmountBilled: "121.00",
		InvoiceDate:  "2024-03-15T00:00:00Z",
		DueDate:      "2024-04-14T00:00:00Z",
	}
	items := []LineItem{
		{ID: "1", Name: "Widget", Amount: "100.00", LedgerAccount: "8000", CostCenter: "KP1"},
		{ID: "2", Name: "Shipping", Amount: "21.00", LedgerAccount: "8100", CostCenter: "KP2"},
	}

	t.Run("header and lines", func(t *testing.T) {
		tx, err := BuildTransaction(testOptions(), invoice, "R123", items)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if tx.Period != "2024/03" || tx.Date != "20240315" || tx.DueDate != "20240414" {
			t.Errorf("unexpected dates: period=%s date=%s due=%s", tx.Period, tx.Date, tx.DueDate)
		}
		if tx.Office != "NL001" || tx.Journal != "VRK" || tx.Currency != "EUR" || tx.InvoiceNumber != "INV-0042" {
			t.Errorf("unexpected header %+v", tx)
		}
		if len(tx.Lines) != 3 {
			t.Fatalf("expected 3 lines, got %d", len(tx.Lines))
		}

		total := tx.Lines[0]
		if total.ID != 1 || total.Type != LineTypeTotal || total.DebitCredit != Debit {
			t.Errorf("unexpected total line %+v", total)
		}
		if total.Dim1 != "1300" || total.Dim2 != "R123" || total.Value != "121.00" {
			t.Errorf("unexpected total line dims %+v", total)
		}

		for i, line := range tx.Lines[1:] {
			if line.ID != i+2 || line.Type != LineTypeDetail || line.DebitCredit != Credit {
				t.Errorf("unexpected detail line %+v", line)
			}
			if line.Dim1 != items[i].LedgerAccount || line.Dim2 != items[i].CostCenter {
				t.Errorf("detail line %d dims = %s/%s", line.ID, line.Dim1, line.Dim2)
			}
			if line.Description != items[i].Name || line.VATCode != "VN" || line.VATValue != "0" {
				t.Errorf("unexpected detail line %+v", line)
			}
		}
	})

	t.Run("no line items", func(t *testing.T) {
		tx, err := BuildTransaction(testOptions(), invoice, "R123", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tx.Lines) != 1 {
			t.Errorf("expected only the total line, got %d", len(tx.Lines))
		}
	})

	t.Run("missing relation number", func(t *testing.T) {
		if _, err := BuildTransaction(testOptions(), invoice, "", items); !errors.Is(err, shared.ErrMissingRelation) {
			t.Errorf("expected ErrMissingRelation, got %v", err)
		}
	})

	t.Run("bad due date", func(t *testing.T) {
		bad := invoice
		bad.DueDate = "next week"
		if _, err := BuildTransaction(testOptions(), bad, "R123", items); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("OptionsFromConfig", func(t *testing.T) {
		opts := OptionsFromConfig(shared.DefaultConfig().Sync, "NL001")
		if opts != testOptions() {
			t.Errorf("expected defaults to match, got %+v", opts)
		}
	})
}

func TestSyncRun(t *testing.T) {
	t.Run("Finish", func(t *testing.T) {
		run := NewSyncRun(false)
		run.SetCounts(3, 1, 1, 1)
		run.Finish(nil)

		if run.Status() != RunStatusCompleted || run.CompletedAt() == nil {
			t.Errorf("expected completed run, got %s", run.Status())
		}
		if err := run.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}

		failed := NewSyncRun(true)
		failed.Finish(errors.New("boom"))
		if failed.Status() != RunStatusFailed || failed.ErrorMessage() != "boom" {
			t.Errorf("expected failed run with message, got %s %q", failed.Status(), failed.ErrorMessage())
		}
	})

	t.Run("Validate", func(t *testing.T) {
		run := NewSyncRun(false)
		run.SetCounts(1, 1, 1, 0)
		if err := run.Validate(); err == nil {
			t.Error("expected error when outcomes exceed invoices seen")
		}

		run.SetCounts(1, 1, 0, 0)
		run.SetStatus("paused")
		if err := run.Validate(); err == nil {
			t.Error("expected error for unknown status")
		}
	})

	t.Run("Duration", func(t *testing.T) {
		run := NewSyncRun(false)
		start := time.Now().Add(-time.Minute)
		end := start.Add(30 * time.Second)
		run.SetStartedAt(start)
		run.SetCompletedAt(&end)

		if run.Duration() != 30*time.Second {
			t.Errorf("expected 30s, got %v", run.Duration())
		}
	})
}

func TestLedgerEntry(t *testing.T) {
	entry := NewLedgerEntry("9001", "INV-0042", "77", "R123", "121.00")
	if entry.ID() != "9001" || entry.Validate() != nil {
		t.Errorf("unexpected entry %+v", entry)
	}

	if err := NewLedgerEntry("", "", "", "", "").Validate(); err == nil {
		t.Error("expected error for missing invoice id")
	}
}

package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchInvoices Phase = iota
	ProcessInvoices
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchInvoices:
		return "fetch_invoices"
	case ProcessInvoices:
		return "process_invoices"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchInvoicesUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchInvoices,
		Step:    0,
		Total:   1,
		Message: "Fetching invoices from HubSpot...",
	}
}

func foundInvoicesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchInvoices,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d invoices", total),
	}
}

func invoiceUpdate(step, total int, res *InvoiceResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s %s", step, total, res.Outcome.Symbol(), res.Invoice.Label())
	if res.Reason != "" {
		msg += ": " + res.Reason
	}
	return ProgressUpdate{
		Phase:   ProcessInvoices,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func completeUpdate(res *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    res.Seen,
		Total:   res.Seen,
		Message: res.Summary(),
		Data:    res,
	}
}

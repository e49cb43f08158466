package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/hubtwin/internal/tasks"
)

var (
	_ list.Item = invoiceItem{}
)

// invoiceItem wraps [tasks.InvoiceResult] to implement [list.Item].
type invoiceItem struct {
	res tasks.InvoiceResult
}

func (i invoiceItem) FilterValue() string { return i.res.Invoice.Number }
func (i invoiceItem) Title() string {
	return fmt.Sprintf("%s %s", i.res.Outcome.Symbol(), i.res.Invoice.Label())
}
func (i invoiceItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.res.Outcome, i.res.Invoice.AmountBilled)
	if i.res.RelationNumber != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.res.RelationNumber)
	}
	if i.res.Reason != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.res.Reason)
	}
	return desc
}

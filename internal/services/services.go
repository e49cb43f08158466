// package services defines the CRM and accounting clients used by the sync
//
// HubSpot (CRM v3 REST), Twinfield (ProcessXml SOAP)
package services

import (
	"context"

	"github.com/desertthunder/hubtwin/internal/models"
)

// CRM defines the invoice source.
type CRM interface {
	// ListInvoices retrieves every invoice with the sync properties.
	ListInvoices(ctx context.Context) ([]models.Invoice, error)

	// InvoiceAssociations returns the IDs of objects of toType associated with the invoice.
	InvoiceAssociations(ctx context.Context, invoiceID, toType string) ([]string, error)

	// GetCompany retrieves a company by ID.
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)

	// GetLineItem retrieves a line item by ID.
	GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error)

	// Name returns the name of the service
	Name() string
}

// Accounting defines the transaction sink.
type Accounting interface {
	// Process posts a transaction. A nil error with OK false means the service rejected it.
	Process(ctx context.Context, tx *models.Transaction) (*ProcessResult, error)

	// Name returns the name of the service
	Name() string
}

// Association target types
const (
	ToCompanies = "companies"
	ToLineItems = "line_items"
)

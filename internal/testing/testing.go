// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/hubtwin/internal/models"
)

// MockCRM is an in-memory test double for services.CRM
type MockCRM struct {
	mu sync.Mutex

	Invoices     []models.Invoice
	Companies    map[string]*models.Company
	LineItems    map[string]*models.LineItem
	Associations map[string]map[string][]string // invoice ID -> target type -> IDs

	ListErr        error
	AssociationErr error
	Calls          map[string]int
}

// NewMockCRM creates an empty [MockCRM].
func NewMockCRM() *MockCRM {
	return &MockCRM{
		Companies:    map[string]*models.Company{},
		LineItems:    map[string]*models.LineItem{},
		Associations: map[string]map[string][]string{},
		Calls:        map[string]int{},
	}
}

// AddInvoice registers an invoice with its company and line items.
func (m *MockCRM) AddInvoice(inv models.Invoice, company *models.Company, items ...models.LineItem) {
	m.Invoices = append(m.Invoices, inv)
	assoc := map[string][]string{}
	if company != nil {
		m.Companies[company.ID] = company
		assoc["companies"] = []string{company.ID}
	}
	for i := range items {
		m.LineItems[items[i].ID] = &items[i]
		assoc["line_items"] = append(assoc["line_items"], items[i].ID)
	}
	m.Associations[inv.ID] = assoc
}

func (m *MockCRM) called(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
}

func (m *MockCRM) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	m.called("ListInvoices")
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Invoices, nil
}

func (m *MockCRM) InvoiceAssociations(ctx context.Context, invoiceID, toType string) ([]string, error) {
	m.called("InvoiceAssociations")
	if m.AssociationErr != nil {
		return nil, m.AssociationErr
	}
	return m.Associations[invoiceID][toType], nil
}

func (m *MockCRM) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	m.called("GetCompany")
	if c, ok := m.Companies[companyID]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("company %s not found", companyID)
}

func (m *MockCRM) GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error) {
	m.called("GetLineItem")
	if li, ok := m.LineItems[lineItemID]; ok {
		return li, nil
	}
	return nil, fmt.Errorf("line item %s not found", lineItemID)
}

func (m *MockCRM) Name() string { return "mock-crm" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

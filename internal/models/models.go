package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the invoice sync.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Invoice represents a HubSpot invoice
type Invoice struct {
	ID           string
	Number       string
	Status       string
	AmountBilled string
	BalanceDue   string
	InvoiceDate  string // raw ISO 8601 value as returned by HubSpot
	DueDate      string
}

// Label identifies the invoice in log lines as number[id].
func (i Invoice) Label() string {
	return i.Number + "[" + i.ID + "]"
}

// Company represents a HubSpot company
type Company struct {
	ID             string
	Name           string
	RelationNumber string // relatie_nummer, the Twinfield debtor code
}

// LineItem represents a HubSpot line item with the custom bookkeeping properties.
type LineItem struct {
	ID            string
	Name          string
	Amount        string
	Quantity      string
	StockNumber   string // voorraadnummer
	CostCenter    string // kostenplaats
	LedgerAccount string // grootboek
	Weight        string // gewicht
	ArticleType   string // artikelsoort
	ArticleGroup  string // artikelgroep
}

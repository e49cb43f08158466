// HubSpot CRM v3 implementation of [CRM]
//
// Response shapes follow https://developers.hubspot.com/docs/api/crm/understanding-the-crm
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/shared"
)

const (
	hubspotBaseURL  = "https://api.hubapi.com"
	hubspotPageSize = 100
)

var (
	invoiceProperties  = []string{"hs_invoice_status", "hs_amount_billed", "hs_balance_due", "hs_invoice_date", "hs_due_date", "hs_number"}
	companyProperties  = []string{"relatie_nummer", "name"}
	lineItemProperties = []string{"amount", "quantity", "voorraadnummer", "name", "kostenplaats", "grootboek", "gewicht", "artikelsoort", "artikelgroep"}
)

// HubSpotObject is a CRM object with nullable string properties.
type HubSpotObject struct {
	ID         string             `json:"id"`
	Properties map[string]*string `json:"properties"`
	Archived   bool               `json:"archived"`
}

// Prop returns a property value, or "" when unset or null.
func (o HubSpotObject) Prop(name string) string {
	if v, ok := o.Properties[name]; ok && v != nil {
		return *v
	}
	return ""
}

type hubspotPaging struct {
	Next *struct {
		After string `json:"after"`
	} `json:"next"`
}

// HubSpotPage is one page of a CRM object listing.
type HubSpotPage struct {
	Results []HubSpotObject `json:"results"`
	Paging  *hubspotPaging  `json:"paging"`
}

type hubspotBatchError struct {
	Status   string `json:"status"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// HubSpotAssociations is the batch association read response.
type HubSpotAssociations struct {
	Status  string `json:"status"`
	Results []struct {
		From struct {
			ID string `json:"id"`
		} `json:"from"`
		To []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"to"`
	} `json:"results"`
	NumErrors int                 `json:"numErrors"`
	Errors    []hubspotBatchError `json:"errors"`
}

type hubspotErrorBody struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Category      string `json:"category"`
	CorrelationID string `json:"correlationId"`
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// HubSpotClient implements [CRM] against the HubSpot CRM v3 API using a private app access token.
type HubSpotClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewHubSpotClient creates a client from the hubspot credentials section.
//
// A nil httpClient falls back to [http.DefaultClient]; requests_per_second <= 0 disables pacing.
func NewHubSpotClient(cfg shared.HubSpotConfig, httpClient *http.Client, logger *log.Logger) (*HubSpotClient, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: hubspot access token", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = hubspotBaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &HubSpotClient{
		baseURL:    baseURL,
		token:      cfg.AccessToken,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

func (c *HubSpotClient) Name() string { return "HubSpot" }

// newRequest builds a paced, authenticated request. A non-nil body is JSON encoded.
func (c *HubSpotClient) newRequest(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := c.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doRequest performs a request and decodes a 2xx JSON response into result.
func (c *HubSpotClient) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}

	c.logger.Debug("hubspot request", "method", method, "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr hubspotErrorBody
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: hubspot %s: %s", shared.ErrNotFound, endpoint, msg)
		}
		return fmt.Errorf("%w: hubspot %s %s: status %d: %s", shared.ErrAPIRequest, method, endpoint, resp.StatusCode, msg)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ListInvoices retrieves every invoice, following paging.next.after until exhausted.
func (c *HubSpotClient) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	after := ""

	for {
		query := url.Values{}
		query.Set("limit", fmt.Sprint(hubspotPageSize))
		query.Set("properties", strings.Join(invoiceProperties, ","))
		if after != "" {
			query.Set("after", after)
		}

		var page HubSpotPage
		if err := c.doRequest(ctx, http.MethodGet, "/crm/v3/objects/invoices", query, nil, &page); err != nil {
			return nil, err
		}

		for _, obj := range page.Results {
			invoices = append(invoices, invoiceFromObject(obj))
		}

		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			break
		}
		after = page.Paging.Next.After
	}

	return invoices, nil
}

// InvoiceAssociations returns the IDs of objects of toType ("companies", "line_items") associated with the invoice.
func (c *HubSpotClient) InvoiceAssociations(ctx context.Context, invoiceID, toType string) ([]string, error) {
	body := map[string]any{
		"inputs": []map[string]string{{"id": invoiceID}},
	}
	endpoint := fmt.Sprintf("/crm/v3/associations/invoice/%s/batch/read", url.PathEscape(toType))

	var result HubSpotAssociations
	if err := c.doRequest(ctx, http.MethodPost, endpoint, nil, body, &result); err != nil {
		return nil, err
	}

	if result.NumErrors > 0 {
		msg := "unknown error"
		if len(result.Errors) > 0 {
			msg = result.Errors[0].Message
		}
		return nil, fmt.Errorf("%w: invoice %s → %s: %s", shared.ErrAssociation, invoiceID, toType, msg)
	}

	var ids []string
	for _, r := range result.Results {
		for _, to := range r.To {
			ids = append(ids, to.ID)
		}
	}
	return ids, nil
}

// GetCompany retrieves a company with its relation number.
func (c *HubSpotClient) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	var obj HubSpotObject
	if err := c.getObject(ctx, "companies", companyID, companyProperties, &obj); err != nil {
		return nil, err
	}
	return &models.Company{
		ID:             obj.ID,
		Name:           obj.Prop("name"),
		RelationNumber: obj.Prop("relatie_nummer"),
	}, nil
}

// GetLineItem retrieves a line item with the bookkeeping properties.
func (c *HubSpotClient) GetLineItem(ctx context.Context, lineItemID string) (*models.LineItem, error) {
	var obj HubSpotObject
	if err := c.getObject(ctx, "line_items", lineItemID, lineItemProperties, &obj); err != nil {
		return nil, err
	}
	return &models.LineItem{
		ID:            obj.ID,
		Name:          obj.Prop("name"),
		Amount:        obj.Prop("amount"),
		Quantity:      obj.Prop("quantity"),
		StockNumber:   obj.Prop("voorraadnummer"),
		CostCenter:    obj.Prop("kostenplaats"),
		LedgerAccount: obj.Prop("grootboek"),
		Weight:        obj.Prop("gewicht"),
		ArticleType:   obj.Prop("artikelsoort"),
		ArticleGroup:  obj.Prop("artikelgroep"),
	}, nil
}

func (c *HubSpotClient) getObject(ctx context.Context, objectType, id string, properties []string, out *HubSpotObject) error {
	if id == "" {
		return fmt.Errorf("%w: empty %s id", shared.ErrInvalidArgument, objectType)
	}
	query := url.Values{}
	query.Set("properties", strings.Join(properties, ","))
	endpoint := fmt.Sprintf("/crm/v3/objects/%s/%s", objectType, url.PathEscape(id))
	return c.doRequest(ctx, http.MethodGet, endpoint, query, nil, out)
}

// Raw performs an authenticated request against any HubSpot path and returns the unparsed response.
//
// Non-2xx statuses are returned as-is rather than as errors.
func (c *HubSpotClient) Raw(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if len(data) > 0 {
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func invoiceFromObject(obj HubSpotObject) models.Invoice {
	return models.Invoice{
		ID:           obj.ID,
		Number:       obj.Prop("hs_number"),
		Status:       obj.Prop("hs_invoice_status"),
		AmountBilled: obj.Prop("hs_amount_billed"),
		BalanceDue:   obj.Prop("hs_balance_due"),
		InvoiceDate:  obj.Prop("hs_invoice_date"),
		DueDate:      obj.Prop("hs_due_date"),
	}
}

// Twinfield ProcessXmlDocument implementation of [Accounting]
package services

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/shared"
)

const (
	soapNamespace      = "http://schemas.xmlsoap.org/soap/envelope/"
	twinfieldNamespace = "http://www.twinfield.com/"
	processXMLAction   = "http://www.twinfield.com/ProcessXmlDocument"
	twinfieldEndpoint  = "https://api.accounting2.twinfield.com/webservices/processxml.asmx"
)

type soapEnvelope struct {
	XMLName     xml.Name `xml:"soap:Envelope"`
	SoapNS      string   `xml:"xmlns:soap,attr"`
	TwinfieldNS string   `xml:"xmlns:twinfield,attr"`
	Header      struct {
		Twinfield struct {
			AccessToken string `xml:"twinfield:AccessToken"`
			CompanyCode string `xml:"twinfield:CompanyCode"`
		} `xml:"twinfield:Header"`
	} `xml:"soap:Header"`
	Body struct {
		Process struct {
			Request struct {
				Transactions []xmlTransaction `xml:"transactions>transaction"`
			} `xml:"twinfield:xmlRequest"`
		} `xml:"twinfield:ProcessXmlDocument"`
	} `xml:"soap:Body"`
}

type xmlTransaction struct {
	Destiny        string    `xml:"destiny,attr"`
	AutoBalanceVAT string    `xml:"autobalancevat,attr"`
	RaiseWarning   string    `xml:"raisewarning,attr"`
	Header         xmlHeader `xml:"header"`
	Lines          []xmlLine `xml:"lines>line"`
}

type xmlHeader struct {
	Office        string `xml:"office"`
	Code          string `xml:"code"`
	Period        string `xml:"period"`
	Date          string `xml:"date"`
	Currency      string `xml:"currency"`
	InvoiceNumber string `xml:"invoicenumber"`
	DueDate       string `xml:"duedate"`
}

type xmlLine struct {
	ID          int    `xml:"id,attr"`
	Type        string `xml:"type,attr"`
	Value       string `xml:"value"`
	DebitCredit string `xml:"debitcredit"`
	Dim1        string `xml:"dim1"`
	Dim2        string `xml:"dim2"`
	Description string `xml:"description,omitempty"`
	VATCode     string `xml:"vatcode,omitempty"`
	VATValue    string `xml:"vatvalue,omitempty"`
}

// ProcessResult is the outcome of posting a transaction.
type ProcessResult struct {
	OK       bool
	Messages []string // error messages reported by Twinfield
	Raw      []byte
}

// BuildEnvelope renders the SOAP request posting tx as a final sales transaction.
func BuildEnvelope(companyCode, accessToken string, tx *models.Transaction) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", shared.ErrInvalidArgument)
	}

	env := soapEnvelope{SoapNS: soapNamespace, TwinfieldNS: twinfieldNamespace}
	env.Header.Twinfield.AccessToken = accessToken
	env.Header.Twinfield.CompanyCode = companyCode

	xt := xmlTransaction{
		Destiny:        "final",
		AutoBalanceVAT: "false",
		RaiseWarning:   "false",
		Header: xmlHeader{
			Office:        tx.Office,
			Code:          tx.Journal,
			Period:        tx.Period,
			Date:          tx.Date,
			Currency:      tx.Currency,
			InvoiceNumber: tx.InvoiceNumber,
			DueDate:       tx.DueDate,
		},
	}
	for _, l := range tx.Lines {
		xt.Lines = append(xt.Lines, xmlLine(l))
	}
	env.Body.Process.Request.Transactions = []xmlTransaction{xt}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// ScanErrors collects the msg attribute of every element carrying an attribute whose value contains "error".
//
// Text content that is itself XML (the escaped ProcessXmlDocumentResult) is scanned as well.
func ScanErrors(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var messages []string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return messages, nil
		}
		if err != nil {
			return messages, fmt.Errorf("failed to parse twinfield response: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if msg, ok := elementError(t); ok {
				messages = append(messages, msg)
			}
		case xml.CharData:
			text := bytes.TrimSpace(t)
			if len(text) > 0 && text[0] == '<' {
				inner, err := ScanErrors(text)
				if err != nil {
					return messages, err
				}
				messages = append(messages, inner...)
			}
		}
	}
}

func elementError(el xml.StartElement) (string, bool) {
	var flagged, msg string
	for _, a := range el.Attr {
		if a.Name.Local == "msg" {
			msg = a.Value
		}
		if strings.Contains(a.Value, "error") {
			flagged = a.Name.Local + "=" + a.Value
		}
	}
	if flagged == "" {
		return "", false
	}
	if msg == "" {
		msg = fmt.Sprintf("<%s> reported %s", el.Name.Local, flagged)
	}
	return msg, true
}

// faultString extracts the faultstring of a SOAP fault, if any.
func faultString(data []byte) string {
	var fault struct {
		Body struct {
			Fault struct {
				FaultString string `xml:"faultstring"`
			} `xml:"Fault"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(data, &fault); err != nil {
		return ""
	}
	return strings.TrimSpace(fault.Body.Fault.FaultString)
}

// TwinfieldClient implements [Accounting] by posting transactions to the ProcessXml web service.
type TwinfieldClient struct {
	endpoint    string
	companyCode string
	tokens      oauth2.TokenSource
	httpClient  *http.Client
	logger      *log.Logger
}

// NewTwinfieldClient creates a client. An empty endpoint uses the public accounting2 cluster.
func NewTwinfieldClient(endpoint, companyCode string, tokens oauth2.TokenSource, httpClient *http.Client, logger *log.Logger) (*TwinfieldClient, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: twinfield company code", shared.ErrMissingCredentials)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: twinfield token source", shared.ErrMissingCredentials)
	}
	if endpoint == "" {
		endpoint = twinfieldEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &TwinfieldClient{
		endpoint:    endpoint,
		companyCode: companyCode,
		tokens:      tokens,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

func (c *TwinfieldClient) Name() string { return "Twinfield" }

// Process posts tx and reports whether Twinfield accepted it.
func (c *TwinfieldClient) Process(ctx context.Context, tx *models.Transaction) (*ProcessResult, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	payload, err := BuildEnvelope(c.companyCode, token.AccessToken, tx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("twinfield request", "invoice", tx.InvoiceNumber, "lines", len(tx.Lines))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("SOAPAction", processXMLAction)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: twinfield: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := faultString(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: twinfield status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}

	messages, err := ScanErrors(body)
	if err != nil {
		return nil, err
	}

	return &ProcessResult{OK: len(messages) == 0, Messages: messages, Raw: body}, nil
}

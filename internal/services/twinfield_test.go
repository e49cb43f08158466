package services

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/hubtwin/internal/models"
	"github.com/desertthunder/hubtwin/internal/shared"
)

func testTransaction() *models.Transaction {
	return &models.Transaction{
		Office:        "NL001",
		Journal:       "VRK",
		Period:        "2024/03",
		Date:          "20240315",
		DueDate:       "20240414",
		Currency:      "EUR",
		InvoiceNumber: "INV-0042",
		Lines: []models.TransactionLine{
			{ID: 1, Type: models.LineTypeTotal, Value: "121.00", DebitCredit: models.Debit, Dim1: "1300", Dim2: "R123"},
			{ID: 2, Type: models.LineTypeDetail, Value: "121.00", DebitCredit: models.Credit, Dim1: "8000", Dim2: "KP1", Description: "Widget & co", VATCode: "VN", VATValue: "0"},
		},
	}
}

const acceptedResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ProcessXmlDocumentResponse xmlns="http://www.twinfield.com/">
      <ProcessXmlDocumentResult>
        <transactions result="1"><transaction result="1" location="final"><header><office>NL001</office></header></transaction></transactions>
      </ProcessXmlDocumentResult>
    </ProcessXmlDocumentResponse>
  </soap:Body>
</soap:Envelope>`

const rejectedEscapedResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ProcessXmlDocumentResponse xmlns="http://www.twinfield.com/">
      <ProcessXmlDocumentResult>&lt;transactions result="0"&gt;&lt;transaction result="0"&gt;&lt;lines&gt;&lt;line id="1"&gt;&lt;dim2 msgtype="error" msg="Relation R123 does not exist." result="0"&gt;R123&lt;/dim2&gt;&lt;/line&gt;&lt;/lines&gt;&lt;/transaction&gt;&lt;/transactions&gt;</ProcessXmlDocumentResult>
    </ProcessXmlDocumentResponse>
  </soap:Body>
</soap:Envelope>`

func TestBuildEnvelope(t *testing.T) {
	data, err := BuildEnvelope("NL001", "token-abc", testTransaction())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := string(data)

	for _, want := range []string{
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:twinfield="http://www.twinfield.com/">`,
		`<twinfield:AccessToken>token-abc</twinfield:AccessToken>`,
		`<twinfield:CompanyCode>NL001</twinfield:CompanyCode>`,
		`<transaction destiny="final" autobalancevat="false" raisewarning="false">`,
		`<code>VRK</code>`,
		`<period>2024/03</period>`,
		`<invoicenumber>INV-0042</invoicenumber>`,
		`<line id="1" type="total">`,
		`<debitcredit>debit</debitcredit>`,
		`<dim1>1300</dim1>`,
		`<line id="2" type="detail">`,
		`<description>Widget &amp; co</description>`,
		`<vatcode>VN</vatcode>`,
		`<vatvalue>0</vatvalue>`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("envelope missing %s\n%s", want, doc)
		}
	}

	var parsed struct {
		Body struct {
			Process struct {
				Request struct {
					Transactions struct {
						Transaction struct {
							Lines []struct {
								ID string `xml:"id,attr"`
							} `xml:"lines>line"`
						} `xml:"transaction"`
					} `xml:"transactions"`
				} `xml:"xmlRequest"`
			} `xml:"ProcessXmlDocument"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("envelope is not well-formed: %v", err)
	}
	if n := len(parsed.Body.Process.Request.Transactions.Transaction.Lines); n != 2 {
		t.Errorf("expected 2 lines after parsing, got %d", n)
	}

	if _, err := BuildEnvelope("NL001", "x", nil); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nil transaction, got %v", err)
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"accepted", acceptedResponse, nil},
		{"inline error", `<transactions><transaction result="0"><header><office msgtype="error" msg="Office unknown.">X</office></header></transaction></transactions>`, []string{"Office unknown."}},
		{"escaped inner error", rejectedEscapedResponse, []string{"Relation R123 does not exist."}},
		{"warning is not an error", `<transaction><dim1 msgtype="warning" msg="Check VAT.">8000</dim1></transaction>`, nil},
		{"flag without msg", `<transaction><dim1 msgtype="error">8000</dim1></transaction>`, []string{"<dim1> reported msgtype=error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanErrors([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("ScanErrors() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("malformed", func(t *testing.T) {
		if _, err := ScanErrors([]byte(`<a><b></a>`)); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestTwinfieldClient(t *testing.T) {
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-abc"})

	t.Run("New", func(t *testing.T) {
		if _, err := NewTwinfieldClient("", "", tokens, nil, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials for missing company code, got %v", err)
		}
		if _, err := NewTwinfieldClient("", "NL001", nil, nil, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials for missing tokens, got %v", err)
		}

		client, err := NewTwinfieldClient("", "NL001", tokens, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.endpoint != "https://api.accounting2.twinfield.com/webservices/processxml.asmx" {
			t.Errorf("unexpected default endpoint %s", client.endpoint)
		}
	})

	t.Run("Process accepted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "text/xml" {
				t.Errorf("unexpected content type %s", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("SOAPAction") != "http://www.twinfield.com/ProcessXmlDocument" {
				t.Errorf("unexpected SOAPAction %s", r.Header.Get("SOAPAction"))
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "<twinfield:AccessToken>token-abc</twinfield:AccessToken>") {
				t.Error("expected access token in envelope header")
			}
			w.Write([]byte(acceptedResponse))
		}))
		defer server.Close()

		client, _ := NewTwinfieldClient(server.URL, "NL001", tokens, server.Client(), nil)
		result, err := client.Process(context.Background(), testTransaction())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.OK || len(result.Messages) != 0 {
			t.Errorf("expected accepted result, got %+v", result)
		}
	})

	t.Run("Process rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(rejectedEscapedResponse))
		}))
		defer server.Close()

		client, _ := NewTwinfieldClient(server.URL, "NL001", tokens, server.Client(), nil)
		result, err := client.Process(context.Background(), testTransaction())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.OK || len(result.Messages) != 1 {
			t.Errorf("expected rejected result with one message, got %+v", result)
		}
	})

	t.Run("SOAP fault", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><soap:Fault><faultcode>soap:Client</faultcode><faultstring>Access denied.</faultstring></soap:Fault></soap:Body></soap:Envelope>`))
		}))
		defer server.Close()

		client, _ := NewTwinfieldClient(server.URL, "NL001", tokens, server.Client(), nil)
		_, err := client.Process(context.Background(), testTransaction())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "Access denied.") {
			t.Errorf("expected fault string in error, got %v", err)
		}
	})

	t.Run("token failure", func(t *testing.T) {
		client, _ := NewTwinfieldClient("http://example.invalid", "NL001", failingTokenSource{}, nil, nil)
		if _, err := client.Process(context.Background(), testTransaction()); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) { return nil, errors.New("refresh rejected") }

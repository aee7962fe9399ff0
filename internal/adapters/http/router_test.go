package httpadapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/config"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/metrics"
)

type quotesFake struct {
	out       *domain.QuoteOutcome
	err       error
	manualReq ports.ManualQuoteRequest
	aiReq     ports.AIQuoteRequest
	calls     int
}

func (f *quotesFake) CreateManualQuote(_ context.Context, req ports.ManualQuoteRequest) (*domain.QuoteOutcome, error) {
	f.calls++
	f.manualReq = req
	return f.out, f.err
}

func (f *quotesFake) CreateAIQuote(_ context.Context, req ports.AIQuoteRequest) (*domain.QuoteOutcome, error) {
	f.calls++
	f.aiReq = req
	return f.out, f.err
}

type readerFake struct {
	quote *domain.Quote
	err   error
}

func (f readerFake) GetQuote(_ context.Context, id string) (*domain.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.quote == nil || f.quote.QuoteID != id {
		return nil, domain.WrapError(domain.ErrNotFound, "get quote", errors.New(id))
	}
	return f.quote, nil
}

func (f readerFake) Catalog() domain.CatalogView {
	return domain.CatalogView{
		Services: []domain.ServiceCatalogEntry{{Value: "contract_review", Label: "Contract Review", BasePrice: 20000}},
		States:   []domain.StateTaxEntry{{Value: "CA", Label: "California", Rate: domain.RateFromFloat(0.0825)}},
		Pricing:  domain.PricingInfo{BaseTaxRate: 0.05, Currency: domain.CurrencyUSD},
	}
}

func (f readerFake) Health(context.Context) domain.HealthStatus {
	return domain.HealthStatus{Status: "healthy", Service: "quote-api"}
}

type archiveFake struct {
	pdf      []byte
	openErr  error
	history  []domain.StoredMetadata
	histErr  error
	stats    *domain.StorageStats
	records  []domain.StoredRecord
	gotEmail string
}

func (f *archiveFake) OpenDocument(_ context.Context, quoteID string) (*domain.StoredDocument, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &domain.StoredDocument{
		Filename: "quote_" + quoteID + "_2025-01-31.pdf",
		Size:     int64(len(f.pdf)),
		Body:     io.NopCloser(bytes.NewReader(f.pdf)),
	}, nil
}

func (f *archiveFake) History(_ context.Context, email string) ([]domain.StoredMetadata, error) {
	f.gotEmail = email
	return f.history, f.histErr
}

func (f *archiveFake) StorageStats(context.Context) (*domain.StorageStats, error) {
	return f.stats, nil
}

func (f *archiveFake) LedgerRecords(context.Context) ([]domain.StoredRecord, error) {
	return f.records, nil
}

type exporterFake struct {
	rows int
}

func (f *exporterFake) Export(records []domain.StoredRecord, w io.Writer) error {
	f.rows = len(records)
	_, err := w.Write([]byte("PK\x03\x04workbook"))
	return err
}

type routerFixture struct {
	handler  http.Handler
	quotes   *quotesFake
	archive  *archiveFake
	exporter *exporterFake
}

func newRouterFixture(t *testing.T, cfg config.ServerConfig, reader readerFake) *routerFixture {
	t.Helper()
	f := &routerFixture{
		quotes:   &quotesFake{},
		archive:  &archiveFake{},
		exporter: &exporterFake{},
	}
	f.handler = NewRouter(cfg, RouterDeps{
		Quotes:   f.quotes,
		Reader:   reader,
		Archive:  f.archive,
		Exporter: f.exporter,
		Metrics:  metrics.NewHTTPServerMetrics("quote-api-test"),
		Logger:   logging.NewTest(t),
	}).Handler()
	return f
}

func sampleOutcome() *domain.QuoteOutcome {
	return &domain.QuoteOutcome{
		Quote: &domain.Quote{
			QuoteID:    "QT-LOYW3V28-AB12C",
			ClientInfo: domain.ClientInfo{Name: "Jane Doe", Email: "jane@example.com"},
			Pricing:    domain.Pricing{BasePrice: 35000, TaxAmount: 2888, TotalAmount: 37888},
		},
		Document: domain.DocumentInfo{
			Filename:          "quote_QT-LOYW3V28-AB12C_2025-01-31.pdf",
			Size:              9,
			StoredAt:          "/data/pdfs/quote_QT-LOYW3V28-AB12C_2025-01-31.pdf",
			DownloadURL:       "/quotes/download-pdf/QT-LOYW3V28-AB12C",
			Buffer:            []byte("%PDF-1.4\n"),
			CompressionStatus: domain.CompressionStatusPending,
		},
		ProcessingTime: 1500 * time.Millisecond,
	}
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func decodeMap(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

const manualBody = `{"selectedServices":["contract_review","legal_consultation"],"state":"CA","clientInfo":{"name":"Jane Doe","email":"jane@example.com"}}`

func TestCreateManualQuoteResponse(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{PublicBaseURL: "https://quotes.example.com"}, readerFake{})
	f.quotes.out = sampleOutcome()

	res := serve(t, f.handler, http.MethodPost, "/quotes/quote-with-pdf", manualBody)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if f.quotes.manualReq.State != "CA" || len(f.quotes.manualReq.SelectedServices) != 2 {
		t.Fatalf("unexpected request passed through: %+v", f.quotes.manualReq)
	}

	var body struct {
		Success        bool           `json:"success"`
		Quote          map[string]any `json:"quote"`
		Document       map[string]any `json:"document"`
		AIInsights     map[string]any `json:"aiInsights"`
		ProcessingTime int64          `json:"processingTime"`
		Message        string         `json:"message"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.ProcessingTime != 1500 {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.AIInsights != nil {
		t.Fatalf("manual quote must not carry aiInsights")
	}
	if body.Quote["pricing"].(map[string]any)["totalAmount"].(float64) != 378.88 {
		t.Fatalf("expected decimal total, got %v", body.Quote["pricing"])
	}
	if body.Document["downloadUrl"] != "https://quotes.example.com/quotes/download-pdf/QT-LOYW3V28-AB12C" {
		t.Fatalf("unexpected download url %v", body.Document["downloadUrl"])
	}
	raw, err := base64.StdEncoding.DecodeString(body.Document["buffer"].(string))
	if err != nil || string(raw) != "%PDF-1.4\n" {
		t.Fatalf("expected base64 buffer, got %v (%v)", body.Document["buffer"], err)
	}
	if body.Document["compressionStatus"] != "PENDING" {
		t.Fatalf("unexpected compression status %v", body.Document["compressionStatus"])
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestCreateAIQuoteResponseCarriesInsights(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
	out := sampleOutcome()
	out.Insights = &domain.AIInsights{RecommendedServices: []string{"employment_law"}, Reasoning: "termination", Confidence: 0.9}
	f.quotes.out = out

	body := `{"userDescription":"I was fired without notice last week.","state":"OTHER","clientInfo":{"name":"Jane","email":"jane@example.com","phone":"555-0100"}}`
	res := serve(t, f.handler, http.MethodPost, "/quotes/ai-quote-with-pdf", body)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if f.quotes.aiReq.State != "OTHER" || f.quotes.aiReq.ClientInfo.Phone != "555-0100" {
		t.Fatalf("unexpected request passed through: %+v", f.quotes.aiReq)
	}
	got := decodeMap(t, res)
	insights, ok := got["aiInsights"].(map[string]any)
	if !ok || insights["reasoning"] != "termination" {
		t.Fatalf("expected aiInsights, got %v", got["aiInsights"])
	}
}

func TestCreateQuoteSchemaValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"lowercase state", "/quotes/quote-with-pdf", `{"selectedServices":["a"],"state":"ca","clientInfo":{"name":"J","email":"j@example.com"}}`},
		{"empty services", "/quotes/quote-with-pdf", `{"selectedServices":[],"state":"CA","clientInfo":{"name":"J","email":"j@example.com"}}`},
		{"eleven services", "/quotes/quote-with-pdf", `{"selectedServices":["1","2","3","4","5","6","7","8","9","10","11"],"state":"CA","clientInfo":{"name":"J","email":"j@example.com"}}`},
		{"bad email", "/quotes/quote-with-pdf", `{"selectedServices":["a"],"state":"CA","clientInfo":{"name":"J","email":"not-an-email"}}`},
		{"email without tld", "/quotes/quote-with-pdf", `{"selectedServices":["a"],"state":"CA","clientInfo":{"name":"J","email":"j@example"}}`},
		{"missing client", "/quotes/quote-with-pdf", `{"selectedServices":["a"],"state":"CA"}`},
		{"short description", "/quotes/ai-quote-with-pdf", `{"userDescription":"too short","state":"CA","clientInfo":{"name":"J","email":"j@example.com"}}`},
		{"invalid json", "/quotes/ai-quote-with-pdf", `{"userDescription":`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
			res := serve(t, f.handler, http.MethodPost, tc.target, tc.body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			if got := decodeMap(t, res); got["error"] != "Validation Error" {
				t.Fatalf("expected Validation Error, got %v", got["error"])
			}
			if f.quotes.calls != 0 {
				t.Fatalf("service must not be called")
			}
		})
	}
}

func TestCreateQuoteAcceptsSimpleEmailShapes(t *testing.T) {
	for _, email := range []string{"john..doe@example.com", "a(b@example.com", "x.@example.com"} {
		t.Run(email, func(t *testing.T) {
			f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
			f.quotes.out = sampleOutcome()

			body := `{"selectedServices":["contract_review"],"state":"CA","clientInfo":{"name":"J","email":"` + email + `"}}`
			res := serve(t, f.handler, http.MethodPost, "/quotes/quote-with-pdf", body)
			if res.Code != http.StatusOK {
				t.Fatalf("expected 200 for %s, got %d: %s", email, res.Code, res.Body.String())
			}
			if f.quotes.manualReq.ClientInfo.Email != email {
				t.Fatalf("expected email passed through, got %q", f.quotes.manualReq.ClientInfo.Email)
			}
		})
	}
}

func TestCreateQuoteBodyTooLarge(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{MaxBodyBytes: 64}, readerFake{})

	res := serve(t, f.handler, http.MethodPost, "/quotes/quote-with-pdf", manualBody)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestCreateQuoteMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"render", domain.WrapError(domain.ErrRenderFailed, "render", errors.New("500")), http.StatusServiceUnavailable, "PDF Generation Failed"},
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "compute", errors.New("Invalid state code: ZZ")), http.StatusBadRequest, "Invalid Services"},
		{"unknown services", domain.WrapError(domain.ErrNotFound, "compute", errors.New("No valid services found")), http.StatusBadRequest, "Invalid Services"},
		{"busy", domain.WrapError(domain.ErrTemporary, "register", errors.New("redis timeout")), http.StatusServiceUnavailable, "Service Unavailable"},
		{"storage", domain.WrapError(domain.ErrStorage, "register", errors.New("disk")), http.StatusInternalServerError, "Quote Generation Failed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
			f.quotes.err = tc.err

			res := serve(t, f.handler, http.MethodPost, "/quotes/quote-with-pdf", manualBody)
			if res.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, res.Code)
			}
			if got := decodeMap(t, res); got["error"] != tc.title {
				t.Fatalf("expected %q, got %v", tc.title, got["error"])
			}
		})
	}
}

func TestCreateQuoteRenderFailureMessage(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
	f.quotes.err = domain.WrapError(domain.ErrRenderFailed, "render", errors.New("boom"))

	res := serve(t, f.handler, http.MethodPost, "/quotes/quote-with-pdf", manualBody)
	got := decodeMap(t, res)
	if got["message"] != msgRenderFailed {
		t.Fatalf("unexpected message %v", got["message"])
	}
}

func TestGetQuote(t *testing.T) {
	quote := sampleOutcome().Quote
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{quote: quote})

	res := serve(t, f.handler, http.MethodGet, "/quotes/"+quote.QuoteID, "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := decodeMap(t, res); got["quote"].(map[string]any)["quoteId"] != quote.QuoteID {
		t.Fatalf("unexpected body %v", got)
	}

	res = serve(t, f.handler, http.MethodGet, "/quotes/QT-MISSING", "")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	got := decodeMap(t, res)
	if got["error"] != "Quote Not Found" || got["message"] != "Quote with ID QT-MISSING was not found" {
		t.Fatalf("unexpected envelope %v", got)
	}
}

func TestConfigRouteWinsOverQuoteID(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})

	res := serve(t, f.handler, http.MethodGet, "/quotes/config", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	got := decodeMap(t, res)
	if got["pricing"].(map[string]any)["baseTaxRate"] != 0.05 {
		t.Fatalf("unexpected pricing %v", got["pricing"])
	}
	states := got["states"].([]any)
	if states[0].(map[string]any)["taxRate"] != 0.0825 {
		t.Fatalf("expected taxRate on states, got %v", states[0])
	}
}

func TestDownloadPDF(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
	f.archive.pdf = []byte("%PDF-1.4 stored")

	res := serve(t, f.handler, http.MethodGet, "/quotes/download-pdf/QT-1", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if res.Header().Get("Content-Disposition") != `attachment; filename="quote_QT-1_2025-01-31.pdf"` {
		t.Fatalf("unexpected disposition %q", res.Header().Get("Content-Disposition"))
	}
	if res.Body.String() != "%PDF-1.4 stored" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}

	f.archive.openErr = domain.WrapError(domain.ErrNotFound, "open", errors.New("key=pdfs/x"))
	res = serve(t, f.handler, http.MethodGet, "/quotes/download-pdf/QT-1", "")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if got := decodeMap(t, res); got["error"] != "PDF Not Found" {
		t.Fatalf("unexpected envelope %v", got)
	}
}

func TestHistory(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
	f.archive.history = []domain.StoredMetadata{{QuoteID: "QT-1"}, {QuoteID: "QT-2"}}

	res := serve(t, f.handler, http.MethodGet, "/quotes/user/jane%40example.com/history", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if f.archive.gotEmail != "jane@example.com" {
		t.Fatalf("expected decoded email, got %q", f.archive.gotEmail)
	}
	got := decodeMap(t, res)
	if got["quotesCount"] != float64(2) || got["userEmail"] != "jane@example.com" {
		t.Fatalf("unexpected body %v", got)
	}

	res = serve(t, f.handler, http.MethodGet, "/quotes/user/janeexample.com/history", "")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestHistoryEmptyIsArray(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})

	res := serve(t, f.handler, http.MethodGet, "/quotes/user/nobody@example.com/history", "")
	if !strings.Contains(res.Body.String(), `"quotes":[]`) {
		t.Fatalf("expected empty array, got %s", res.Body.String())
	}
}

func TestStorageStatsAndLedgerExport(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})
	f.archive.stats = &domain.StorageStats{TotalQuotes: 3, LedgerRows: 5}
	f.archive.records = make([]domain.StoredRecord, 5)

	res := serve(t, f.handler, http.MethodGet, "/quotes/admin/storage-stats", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	got := decodeMap(t, res)
	if got["success"] != true || got["statistics"].(map[string]any)["totalQuotes"] != float64(3) {
		t.Fatalf("unexpected stats body %v", got)
	}

	res = serve(t, f.handler, http.MethodGet, "/quotes/admin/ledger.xlsx", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if f.exporter.rows != 5 {
		t.Fatalf("expected 5 exported rows, got %d", f.exporter.rows)
	}
}

func TestHealthIndexAndMetrics(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{}, readerFake{})

	if res := serve(t, f.handler, http.MethodGet, "/health", ""); res.Code != http.StatusOK || decodeMap(t, res)["status"] != "healthy" {
		t.Fatalf("unexpected health response %d %s", res.Code, res.Body.String())
	}
	if res := serve(t, f.handler, http.MethodGet, "/", ""); res.Code != http.StatusOK || decodeMap(t, res)["version"] != "1.0.0" {
		t.Fatalf("unexpected index response %d %s", res.Code, res.Body.String())
	}

	_ = serve(t, f.handler, http.MethodGet, "/quotes/config", "")
	res := serve(t, f.handler, http.MethodGet, "/metrics", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "aqg_http_requests_total") {
		t.Fatalf("expected http metrics in exposition")
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newRouterFixture(t, config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}}, readerFake{})

	req := httptest.NewRequest(http.MethodOptions, "/quotes/quote-with-pdf", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if res.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected allowed origin echo, got %q", res.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/quotes/config", nil)
	req.Header.Set("Origin", "http://evil.example")
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected CORS header for unknown origin")
	}
}

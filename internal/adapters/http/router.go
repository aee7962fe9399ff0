package httpadapter

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/config"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/metrics"
)

const (
	apiVersion      = "1.0.0"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type RouterDeps struct {
	Quotes   ports.QuoteCreator
	Reader   ports.QuoteReader
	Archive  ports.DocumentArchive
	Exporter ports.LedgerExporter
	// Metrics may be nil. When set it instruments every request and serves /metrics.
	Metrics *metrics.HTTPServerMetrics
	Logger  logging.Logger
}

type Router struct {
	cfg  config.ServerConfig
	deps RouterDeps
	log  logging.Logger
	now  func() time.Time
}

func NewRouter(cfg config.ServerConfig, deps RouterDeps) *Router {
	log := deps.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Router{
		cfg:  cfg,
		deps: deps,
		log:  log.With(logging.Fields{"component": "http"}),
		now:  time.Now,
	}
}

// Handler builds the route table. /health and /metrics bypass the rate limit
// and backpressure gates.
func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /quotes/ai-quote-with-pdf", rt.createAIQuote)
	api.HandleFunc("POST /quotes/quote-with-pdf", rt.createManualQuote)
	api.HandleFunc("GET /quotes/config", rt.catalog)
	api.HandleFunc("GET /quotes/admin/storage-stats", rt.storageStats)
	api.HandleFunc("GET /quotes/admin/ledger.xlsx", rt.exportLedger)
	api.HandleFunc("GET /quotes/download-pdf/{quoteId}", rt.downloadPDF)
	api.HandleFunc("GET /quotes/user/{email}/history", rt.history)
	api.HandleFunc("GET /quotes/{quoteId}", rt.getQuote)
	api.HandleFunc("GET /{$}", rt.index)

	var onReject rejectFunc
	if rt.deps.Metrics != nil {
		onReject = rt.deps.Metrics.RecordRejected
	}
	guarded := backpressureMiddleware(api, rt.cfg.MaxInFlight, rt.cfg.InFlightWait, onReject)
	guarded = rateLimitMiddleware(guarded, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst, onReject)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", rt.health)
	if rt.deps.Metrics != nil {
		root.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	root.Handle("/", guarded)

	var handler http.Handler = corsMiddleware(root, rt.cfg.CORSOrigins)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.log, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) requestLog(r *http.Request) logging.Logger {
	return rt.log.With(logging.Fields{"request_id": requestIDFromContext(r.Context())})
}

func (rt *Router) fail(w http.ResponseWriter, r *http.Request, err error, scope errorScope) {
	mapped := mapError(err, scope)
	if mapped.Status >= http.StatusInternalServerError {
		rt.requestLog(r).WithError(err).Error("request_failed", logging.Fields{"path": r.URL.Path, "status": mapped.Status})
	}
	writeError(w, mapped.Status, mapped.Title, mapped.Message)
}

func (rt *Router) createAIQuote(w http.ResponseWriter, r *http.Request) {
	var req aiQuoteRequest
	if err := decodeBody(w, r, rt.cfg.MaxBodyBytes, aiQuoteSchema, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	out, err := rt.deps.Quotes.CreateAIQuote(r.Context(), ports.AIQuoteRequest{
		UserDescription: req.UserDescription,
		State:           req.State,
		ClientInfo:      req.ClientInfo.domain(),
	})
	if err != nil {
		rt.fail(w, r, err, scopeQuoteCreate)
		return
	}

	writeJSON(w, http.StatusOK, rt.quoteResponse(out,
		"Quote and PDF generated successfully using AI recommendations. Compression is processing in background."))
}

func (rt *Router) createManualQuote(w http.ResponseWriter, r *http.Request) {
	var req manualQuoteRequest
	if err := decodeBody(w, r, rt.cfg.MaxBodyBytes, manualQuoteSchema, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	out, err := rt.deps.Quotes.CreateManualQuote(r.Context(), ports.ManualQuoteRequest{
		SelectedServices: req.SelectedServices,
		State:            req.State,
		ClientInfo:       req.ClientInfo.domain(),
	})
	if err != nil {
		rt.fail(w, r, err, scopeQuoteCreate)
		return
	}

	writeJSON(w, http.StatusOK, rt.quoteResponse(out,
		"Quote and PDF generated successfully with manual service selection. Compression is processing in background."))
}

func (rt *Router) quoteResponse(out *domain.QuoteOutcome, message string) quoteResponse {
	doc := out.Document
	if rt.cfg.PublicBaseURL != "" && strings.HasPrefix(doc.DownloadURL, "/") {
		doc.DownloadURL = rt.cfg.PublicBaseURL + doc.DownloadURL
	}
	return quoteResponse{
		Success:        true,
		Quote:          out.Quote,
		Document:       doc,
		AIInsights:     out.Insights,
		ProcessingTime: out.ProcessingTime.Milliseconds(),
		Message:        message,
	}
}

func (rt *Router) getQuote(w http.ResponseWriter, r *http.Request) {
	quoteID := r.PathValue("quoteId")
	quote, err := rt.deps.Reader.GetQuote(r.Context(), quoteID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Quote Not Found", fmt.Sprintf("Quote with ID %s was not found", quoteID))
			return
		}
		rt.fail(w, r, err, scopeQuoteLookup)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote": quote})
}

func (rt *Router) catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.deps.Reader.Catalog())
}

func (rt *Router) downloadPDF(w http.ResponseWriter, r *http.Request) {
	quoteID := r.PathValue("quoteId")
	doc, err := rt.deps.Archive.OpenDocument(r.Context(), quoteID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "PDF Not Found", fmt.Sprintf("PDF for quote %s was not found", quoteID))
			return
		}
		rt.fail(w, r, err, scopeDocument)
		return
	}
	defer doc.Body.Close()

	h := w.Header()
	h.Set("Content-Type", domain.MimeTypePDF)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	if doc.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc.Body); err != nil {
		rt.requestLog(r).WithError(err).Warn("pdf_download_interrupted", logging.Fields{"quote_id": quoteID})
	}
}

func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid Email", "Please provide a valid email address")
		return
	}
	quotes, err := rt.deps.Archive.History(r.Context(), email)
	if err != nil {
		rt.fail(w, r, err, scopeHistory)
		return
	}
	if quotes == nil {
		quotes = []domain.StoredMetadata{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Success:     true,
		UserEmail:   email,
		QuotesCount: len(quotes),
		Quotes:      quotes,
	})
}

func (rt *Router) storageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.deps.Archive.StorageStats(r.Context())
	if err != nil {
		rt.fail(w, r, err, scopeAdmin)
		return
	}
	writeJSON(w, http.StatusOK, storageStatsResponse{
		Success:    true,
		Statistics: stats,
		Timestamp:  rt.now().UTC(),
	})
}

func (rt *Router) exportLedger(w http.ResponseWriter, r *http.Request) {
	records, err := rt.deps.Archive.LedgerRecords(r.Context())
	if err != nil {
		rt.fail(w, r, err, scopeAdmin)
		return
	}
	var buf bytes.Buffer
	if err := rt.deps.Exporter.Export(records, &buf); err != nil {
		rt.fail(w, r, domain.WrapError(domain.ErrStorage, "export ledger", err), scopeAdmin)
		return
	}

	h := w.Header()
	h.Set("Content-Type", xlsxContentType)
	h.Set("Content-Disposition", `attachment; filename="quote_ledger.xlsx"`)
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.deps.Reader.Health(r.Context()))
}

func (rt *Router) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Legal Quote Backend API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"health":       "/health",
			"metrics":      "/metrics",
			"quotes":       "/quotes",
			"config":       "/quotes/config",
			"aiQuote":      "/quotes/ai-quote-with-pdf",
			"manualQuote":  "/quotes/quote-with-pdf",
			"downloadPdf":  "/quotes/download-pdf/{quoteId}",
			"history":      "/quotes/user/{email}/history",
			"storageStats": "/quotes/admin/storage-stats",
			"ledgerExport": "/quotes/admin/ledger.xlsx",
		},
	})
}

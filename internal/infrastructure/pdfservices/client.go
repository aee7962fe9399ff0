// Package pdfservices is the client for the remote document generation and
// PDF compression APIs.
package pdfservices

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/resilience"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	renderPath   = "/document-generation/api/GenerateDocumentBase64"
	uploadPath   = "/pdf-services/api/documents/upload"
	compressPath = "/pdf-services/api/documents/modify/pdf-compress"
	tasksPath    = "/pdf-services/api/tasks/"
	documentPath = "/pdf-services/api/documents/"

	maxResponseBytes = 64 << 20
)

type Timeouts struct {
	Render   time.Duration
	Upload   time.Duration
	Compress time.Duration
	Status   time.Duration
	Download time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Render:   30 * time.Second,
		Upload:   60 * time.Second,
		Compress: 120 * time.Second,
		Status:   30 * time.Second,
		Download: 60 * time.Second,
	}
}

func (t Timeouts) normalize() Timeouts {
	def := DefaultTimeouts()
	if t.Render <= 0 {
		t.Render = def.Render
	}
	if t.Upload <= 0 {
		t.Upload = def.Upload
	}
	if t.Compress <= 0 {
		t.Compress = def.Compress
	}
	if t.Status <= 0 {
		t.Status = def.Status
	}
	if t.Download <= 0 {
		t.Download = def.Download
	}
	return t
}

type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeouts     Timeouts
}

// Client carries credentials and per-call timeouts. Timeouts are applied per
// attempt through the request context, not on the http.Client.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	timeouts     Timeouts
	httpClient   *http.Client
	executor     *resilience.Executor
	log          logging.Logger
}

func New(opts Options, executor *resilience.Executor, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		timeouts:     opts.Timeouts.normalize(),
		httpClient:   &http.Client{},
		executor:     executor,
		log:          log.With(logging.Fields{"component": "pdfservices"}),
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// execute runs fn through the resilience executor, which decides per
// operation whether a transient failure is retried.
func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyPDFServicesError)
}

package pdfservices

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/resilience"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	defaultMatterDescription = "Legal services as outlined below"
	matterDescriptionLimit   = 100
	phoneNotProvided         = "Not provided"
	isoDate                  = "2006-01-02"
)

var pdfMagic = []byte("%PDF-")

// LoadTemplate reads a base64-encoded document template from disk.
func LoadTemplate(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	template := strings.TrimSpace(string(raw))
	if template == "" {
		return "", fmt.Errorf("template %s is empty", path)
	}
	return template, nil
}

type Renderer struct {
	client   *Client
	template string
	now      func() time.Time
}

type RendererOption func(*Renderer)

func WithRenderClock(now func() time.Time) RendererOption {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRenderer(client *Client, template string, opts ...RendererOption) *Renderer {
	r := &Renderer{client: client, template: template, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) TemplateLoaded() bool {
	return r.template != ""
}

type generateRequest struct {
	OutputFormat     string         `json:"outputFormat"`
	CurrencyCulture  string         `json:"currencyCulture"`
	DocumentValues   documentValues `json:"documentValues"`
	Base64FileString string         `json:"base64FileString"`
}

type generateResponse struct {
	Base64FileString string `json:"base64FileString"`
}

func (r *Renderer) Render(ctx context.Context, req domain.RenderRequest) (*domain.RenderedDocument, error) {
	if req.Quote == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "render document", errors.New("quote is required"))
	}
	if r.template == "" {
		return nil, domain.WrapError(domain.ErrRenderFailed, "render document", errors.New("document template not loaded"))
	}

	now := r.now()
	payload := generateRequest{
		OutputFormat:     "pdf",
		CurrencyCulture:  "en-US",
		DocumentValues:   buildDocumentValues(req, now),
		Base64FileString: r.template,
	}

	var response generateResponse
	err := r.client.execute(ctx, resilience.OpRender, func(callCtx context.Context) error {
		response = generateResponse{}
		return r.client.postJSON(callCtx, renderPath, r.client.timeouts.Render, payload, &response, "render")
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrRenderFailed, "render document", err)
	}
	if response.Base64FileString == "" {
		return nil, domain.WrapError(domain.ErrRenderFailed, "render document", errors.New("no base64FileString returned"))
	}
	data, err := base64.StdEncoding.DecodeString(response.Base64FileString)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRenderFailed, "decode document", err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, domain.WrapError(domain.ErrRenderFailed, "validate document", errors.New("payload is not a PDF"))
	}

	pages, err := countPages(data)
	if err != nil {
		r.client.log.Warn("pdf_page_count_failed", logging.Fields{"quote_id": req.Quote.QuoteID, "error": err.Error()})
	}

	return &domain.RenderedDocument{
		Filename:    domain.DocumentFilename(req.Quote),
		Bytes:       data,
		Size:        len(data),
		PageCount:   pages,
		MimeType:    domain.MimeTypePDF,
		GeneratedAt: now.UTC(),
	}, nil
}

func countPages(data []byte) (pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = 0, fmt.Errorf("inspect pdf: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return reader.NumPage(), nil
}

type serviceItem struct {
	Name  string `json:"ServiceItems.ServiceName"`
	Price string `json:"ServiceItems.ServicePrice"`
}

type termClause struct {
	ClauseText string `json:"clauseText"`
}

type documentValues struct {
	CustomerName      string        `json:"customerName"`
	CustomerEmail     string        `json:"customerEmail"`
	CustomerPhone     string        `json:"customerPhone"`
	QuoteNumber       string        `json:"quoteNumber"`
	ValidThrough      string        `json:"validThrough"`
	MatterDescription string        `json:"matterDescription"`
	State             string        `json:"state"`
	ServiceItems      []serviceItem `json:"ServiceItems"`
	Subtotal          string        `json:"subtotal"`
	TaxLabel          string        `json:"taxLabel"`
	TaxAmount         string        `json:"taxAmount"`
	GrandTotal        string        `json:"grandTotal"`
	PaymentDueDate    string        `json:"paymentDueDate"`
	Terms             []termClause  `json:"terms"`
}

func buildDocumentValues(req domain.RenderRequest, now time.Time) documentValues {
	q := req.Quote
	today := now.UTC()

	items := make([]serviceItem, 0, len(q.Services))
	for _, s := range q.Services {
		items = append(items, serviceItem{Name: s.Label, Price: s.BasePrice.String()})
	}

	phone := q.ClientInfo.Phone
	if phone == "" {
		phone = phoneNotProvided
	}

	terms := []termClause{
		{ClauseText: "This quote excludes state filing fees unless otherwise stated."},
		{ClauseText: q.State.Label + " clients may be subject to additional local surcharges."},
		{ClauseText: "Work commences upon receipt of retainer."},
	}
	if req.Insights != nil {
		for _, rec := range req.Insights.AdditionalRecommendations {
			terms = append(terms, termClause{ClauseText: "Note: " + rec})
		}
	}

	return documentValues{
		CustomerName:      q.ClientInfo.Name,
		CustomerEmail:     q.ClientInfo.Email,
		CustomerPhone:     phone,
		QuoteNumber:       q.QuoteID,
		ValidThrough:      today.AddDate(0, 1, 0).Format(isoDate),
		MatterDescription: matterDescription(req.UserDescription, req.Insights),
		State:             q.State.Label,
		ServiceItems:      items,
		Subtotal:          q.Pricing.BasePrice.String(),
		TaxLabel:          fmt.Sprintf("%s Tax %s%%", q.State.Label, q.State.Rate.Percent()),
		TaxAmount:         q.Pricing.TaxAmount.String(),
		GrandTotal:        q.Pricing.TotalAmount.String(),
		PaymentDueDate:    today.AddDate(0, 0, 30).Format(isoDate),
		Terms:             terms,
	}
}

func matterDescription(description string, insights *domain.AIInsights) string {
	out := defaultMatterDescription
	if description != "" {
		out = description
		if runes := []rune(description); len(runes) > matterDescriptionLimit {
			out = string(runes[:matterDescriptionLimit]) + "..."
		}
	}
	if insights != nil && insights.Reasoning != "" {
		out += " (AI recommended: " + insights.Reasoning + ")"
	}
	return out
}

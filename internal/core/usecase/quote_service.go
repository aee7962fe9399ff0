package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	ModeManual = "manual"
	ModeAI     = "ai"

	RenderStatusOK     = "ok"
	RenderStatusFailed = "failed"

	minDescriptionLength = 10
	maxDescriptionLength = 2000
	downloadPathPrefix   = "/quotes/download-pdf/"
)

type QuoteCalculator interface {
	Compute(serviceIDs []string, stateCode string, client domain.ClientInfo, aiGenerated bool) (*domain.Quote, error)
}

type QuotePersister interface {
	Persist(ctx context.Context, req domain.PersistRequest) (*domain.StoredResult, error)
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

type QuoteServiceDeps struct {
	ServiceName string
	Calculator  QuoteCalculator
	Catalog     ports.Catalog
	BaseTaxRate domain.Rate
	Registry    ports.QuoteRegistry
	Recommender ports.ServiceRecommender
	Renderer    ports.DocumentRenderer
	Persister   QuotePersister
	Queue       ports.CompressionQueue
	Observers   []ports.QuoteObserver
	Checks      map[string]HealthCheck
	Logger      logging.Logger
	Now         func() time.Time
}

// QuoteService orchestrates pricing, registration, rendering, the immediate
// store and the hand-off to background compression.
type QuoteService struct {
	deps QuoteServiceDeps
	log  logging.Logger
	now  func() time.Time
}

func NewQuoteService(deps QuoteServiceDeps) *QuoteService {
	log := deps.Logger
	if log == nil {
		log = logging.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "ai-quote-generator"
	}
	return &QuoteService{
		deps: deps,
		log:  log.With(logging.Fields{"component": "quote_service"}),
		now:  now,
	}
}

func (s *QuoteService) CreateManualQuote(ctx context.Context, req ports.ManualQuoteRequest) (*domain.QuoteOutcome, error) {
	start := s.now()
	quote, err := s.deps.Calculator.Compute(req.SelectedServices, req.State, req.ClientInfo, false)
	if err != nil {
		s.quoteFailed(ModeManual)
		return nil, err
	}
	return s.complete(ctx, ModeManual, start, quote, nil, "")
}

func (s *QuoteService) CreateAIQuote(ctx context.Context, req ports.AIQuoteRequest) (*domain.QuoteOutcome, error) {
	start := s.now()
	description := strings.TrimSpace(req.UserDescription)
	if n := utf8.RuneCountInString(description); n < minDescriptionLength || n > maxDescriptionLength {
		s.quoteFailed(ModeAI)
		return nil, domain.WrapError(domain.ErrInvalidInput, "create ai quote",
			fmt.Errorf("description must be between %d and %d characters", minDescriptionLength, maxDescriptionLength))
	}
	// Reject unknown states before paying for a recommendation.
	if _, ok := s.deps.Catalog.State(req.State); !ok {
		s.quoteFailed(ModeAI)
		return nil, domain.WrapError(domain.ErrInvalidInput, "create ai quote", fmt.Errorf("Invalid state code: %s", req.State))
	}

	insights, err := s.deps.Recommender.Recommend(ctx, description)
	if err != nil {
		s.quoteFailed(ModeAI)
		if !domain.IsKind(err, domain.ErrAIService) {
			err = domain.WrapError(domain.ErrAIService, "recommend services", err)
		}
		return nil, err
	}
	if insights == nil || len(insights.RecommendedServices) == 0 {
		s.quoteFailed(ModeAI)
		return nil, domain.WrapError(domain.ErrNoServicesRecommended, "create ai quote",
			errors.New("could not determine appropriate legal services from the description"))
	}

	quote, err := s.deps.Calculator.Compute(insights.RecommendedServices, req.State, req.ClientInfo, true)
	if err != nil {
		s.quoteFailed(ModeAI)
		return nil, err
	}
	return s.complete(ctx, ModeAI, start, quote, insights, description)
}

func (s *QuoteService) complete(
	ctx context.Context,
	mode string,
	start time.Time,
	quote *domain.Quote,
	insights *domain.AIInsights,
	description string,
) (*domain.QuoteOutcome, error) {
	if err := s.deps.Registry.Put(ctx, quote); err != nil {
		s.quoteFailed(mode)
		if !domain.IsKind(err, domain.ErrTemporary) {
			err = domain.WrapError(domain.ErrStorage, "register quote", err)
		}
		return nil, err
	}
	for _, o := range s.deps.Observers {
		o.QuoteCreated(ctx, quote, mode)
	}

	doc, err := s.deps.Renderer.Render(ctx, domain.RenderRequest{Quote: quote, Insights: insights, UserDescription: description})
	if err != nil {
		s.documentRendered(RenderStatusFailed)
		s.log.WithError(err).Error("quote_render_failed", logging.Fields{"quote_id": quote.QuoteID, "mode": mode})
		if !domain.IsKind(err, domain.ErrRenderFailed) {
			err = domain.WrapError(domain.ErrRenderFailed, "render quote document", err)
		}
		return nil, err
	}
	s.documentRendered(RenderStatusOK)

	storedAt, status := s.storeAndEnqueue(ctx, quote, doc, insights, description)

	elapsed := s.now().Sub(start)
	s.log.Info("quote_created", logging.Fields{
		"quote_id":           quote.QuoteID,
		"mode":               mode,
		"total":              quote.Pricing.TotalAmount.String(),
		"document_size":      doc.Size,
		"compression_status": status,
		"duration_ms":        elapsed.Milliseconds(),
	})

	return &domain.QuoteOutcome{
		Quote: quote,
		Document: domain.DocumentInfo{
			Filename:          doc.Filename,
			Size:              doc.Size,
			PageCount:         doc.PageCount,
			StoredAt:          storedAt,
			DownloadURL:       downloadPathPrefix + quote.QuoteID,
			Buffer:            doc.Bytes,
			CompressionStatus: status,
		},
		Insights:       insights,
		ProcessingTime: elapsed,
	}, nil
}

// storeAndEnqueue never fails the request: a failed store or enqueue only
// marks compression as skipped.
func (s *QuoteService) storeAndEnqueue(
	ctx context.Context,
	quote *domain.Quote,
	doc *domain.RenderedDocument,
	insights *domain.AIInsights,
	description string,
) (string, string) {
	stored, err := s.deps.Persister.Persist(ctx, domain.PersistRequest{
		Quote:           quote,
		Insights:        insights,
		UserDescription: description,
		Document:        doc.Bytes,
		OriginalSize:    doc.Size,
		CompressedSize:  doc.Size,
		Stage:           domain.StageOriginal,
	})
	if err != nil {
		s.log.WithError(err).Warn("quote_store_failed", logging.Fields{"quote_id": quote.QuoteID})
		return "", domain.CompressionStatusSkipped
	}

	job := domain.CompressionJob{
		JobID:           uuid.NewString(),
		Quote:           quote,
		Insights:        insights,
		UserDescription: description,
		DocumentKey:     stored.DocumentKey,
		Filename:        doc.Filename,
		EnqueuedAt:      s.now().UTC(),
	}
	if s.deps.Queue == nil {
		return stored.PDFPath, domain.CompressionStatusSkipped
	}
	if err := s.deps.Queue.Enqueue(ctx, job); err != nil {
		s.log.WithError(err).Warn("compression_enqueue_failed", logging.Fields{"quote_id": quote.QuoteID, "job_id": job.JobID})
		return stored.PDFPath, domain.CompressionStatusSkipped
	}
	return stored.PDFPath, domain.CompressionStatusPending
}

func (s *QuoteService) GetQuote(ctx context.Context, quoteID string) (*domain.Quote, error) {
	return s.deps.Registry.Get(ctx, strings.TrimSpace(quoteID))
}

func (s *QuoteService) Catalog() domain.CatalogView {
	return domain.CatalogView{
		Services: s.deps.Catalog.Services(),
		States:   s.deps.Catalog.States(),
		Pricing: domain.PricingInfo{
			BaseTaxRate: s.deps.BaseTaxRate.Float64(),
			Currency:    domain.CurrencyUSD,
		},
	}
}

func (s *QuoteService) Health(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{
		Status:    "healthy",
		Service:   s.deps.ServiceName,
		Timestamp: s.now().UTC(),
		Details:   map[string]any{},
	}

	if count, err := s.deps.Registry.Count(ctx); err != nil {
		status.Status = "degraded"
		status.Details["registry"] = err.Error()
	} else {
		status.Details["quotesInRegistry"] = count
	}

	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.deps.Checks[name](ctx); err != nil {
			status.Status = "degraded"
			status.Details[name] = err.Error()
			continue
		}
		status.Details[name] = "ok"
	}
	return status
}

func (s *QuoteService) quoteFailed(mode string) {
	for _, o := range s.deps.Observers {
		o.QuoteFailed(mode)
	}
}

func (s *QuoteService) documentRendered(status string) {
	for _, o := range s.deps.Observers {
		o.DocumentRendered(status)
	}
}

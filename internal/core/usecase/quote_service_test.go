package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/pricing"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/catalog"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

type serviceFixture struct {
	svc         *QuoteService
	registry    *registryFake
	recommender *recommenderFake
	renderer    *rendererFake
	persister   *persisterFake
	queue       *queueFake
	observer    *observerFake
}

func newServiceFixture(t *testing.T, mutate func(*QuoteServiceDeps)) *serviceFixture {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	now := func() time.Time { return time.Date(2025, time.January, 31, 15, 0, 0, 0, time.UTC) }
	ids := pricing.NewQuoteIDGenerator(now, func(n int) string { return "ab12c"[:n] })

	f := &serviceFixture{
		registry:    newRegistryFake(),
		recommender: &recommenderFake{},
		renderer:    &rendererFake{},
		persister:   &persisterFake{},
		queue:       &queueFake{},
		observer:    &observerFake{},
	}
	deps := QuoteServiceDeps{
		ServiceName: "quote-api-test",
		Calculator:  pricing.NewCalculator(cat, pricing.WithClock(now), pricing.WithIDGenerator(ids)),
		Catalog:     cat,
		BaseTaxRate: cat.BaseTaxRate(),
		Registry:    f.registry,
		Recommender: f.recommender,
		Renderer:    f.renderer,
		Persister:   f.persister,
		Queue:       f.queue,
		Observers:   []ports.QuoteObserver{f.observer},
		Logger:      logging.NewTest(t),
		Now:         now,
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.svc = NewQuoteService(deps)
	return f
}

var testClient = domain.ClientInfo{Name: "Jane Doe", Email: "jane@example.com"}

func TestCreateManualQuote(t *testing.T) {
	f := newServiceFixture(t, nil)

	out, err := f.svc.CreateManualQuote(context.Background(), ports.ManualQuoteRequest{
		SelectedServices: []string{"contract_review", "legal_consultation"},
		State:            "CA",
		ClientInfo:       testClient,
	})
	if err != nil {
		t.Fatalf("create manual quote: %v", err)
	}
	if out.Quote.Pricing.TotalAmount != 37888 {
		t.Fatalf("expected total 378.88, got %s", out.Quote.Pricing.TotalAmount)
	}
	if out.Quote.Metadata.IsAIGenerated {
		t.Fatalf("manual quote must not be marked as AI generated")
	}
	if _, ok := f.registry.quotes[out.Quote.QuoteID]; !ok {
		t.Fatalf("expected quote in registry")
	}
	if out.Document.CompressionStatus != domain.CompressionStatusPending {
		t.Fatalf("expected PENDING, got %q", out.Document.CompressionStatus)
	}
	if out.Document.DownloadURL != "/quotes/download-pdf/"+out.Quote.QuoteID {
		t.Fatalf("unexpected download url %q", out.Document.DownloadURL)
	}
	if !strings.HasPrefix(string(out.Document.Buffer), "%PDF-") {
		t.Fatalf("expected rendered bytes in response")
	}
	if out.Document.StoredAt == "" {
		t.Fatalf("expected storedAt")
	}

	if len(f.persister.calls) != 1 || f.persister.calls[0].req.Stage != domain.StageOriginal {
		t.Fatalf("expected one original persist, got %+v", f.persister.calls)
	}
	if len(f.queue.jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(f.queue.jobs))
	}
	job := f.queue.jobs[0]
	if job.JobID == "" || job.DocumentKey != DocumentKey(out.Quote) || job.Quote.QuoteID != out.Quote.QuoteID {
		t.Fatalf("unexpected job: %+v", job)
	}
	if len(f.observer.created) != 1 || f.observer.created[0] != ModeManual {
		t.Fatalf("expected manual creation event, got %v", f.observer.created)
	}
	if len(f.observer.rendered) != 1 || f.observer.rendered[0] != RenderStatusOK {
		t.Fatalf("expected ok render event, got %v", f.observer.rendered)
	}
}

func TestCreateManualQuoteValidationFails(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.svc.CreateManualQuote(context.Background(), ports.ManualQuoteRequest{
		State:      "CA",
		ClientInfo: testClient,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(f.registry.quotes) != 0 || len(f.renderer.reqs) != 0 {
		t.Fatalf("nothing should be registered or rendered")
	}
	if len(f.observer.failed) != 1 {
		t.Fatalf("expected failure event")
	}
}

func TestCreateAIQuote(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.recommender.insights = &domain.AIInsights{
		RecommendedServices:       []string{"employment_law", "unknown_service"},
		Reasoning:                 "wrongful termination",
		Confidence:                0.9,
		AdditionalRecommendations: []string{"Collect pay stubs"},
	}

	out, err := f.svc.CreateAIQuote(context.Background(), ports.AIQuoteRequest{
		UserDescription: "  I was fired without notice after reporting safety issues.  ",
		State:           "NY",
		ClientInfo:      testClient,
	})
	if err != nil {
		t.Fatalf("create ai quote: %v", err)
	}
	if f.recommender.got != "I was fired without notice after reporting safety issues." {
		t.Fatalf("expected trimmed description, got %q", f.recommender.got)
	}
	if !out.Quote.Metadata.IsAIGenerated {
		t.Fatalf("expected AI generated quote")
	}
	if len(out.Quote.Services) != 1 || out.Quote.Services[0].Value != "employment_law" {
		t.Fatalf("expected unknown services dropped, got %+v", out.Quote.Services)
	}
	if out.Insights == nil || out.Insights.Reasoning != "wrongful termination" {
		t.Fatalf("expected insights in outcome")
	}
	if f.renderer.reqs[0].Insights == nil || f.renderer.reqs[0].UserDescription == "" {
		t.Fatalf("renderer should receive insights and description")
	}
	if f.persister.calls[0].req.Insights == nil {
		t.Fatalf("persist should carry insights")
	}
}

func TestCreateAIQuoteDescriptionBounds(t *testing.T) {
	f := newServiceFixture(t, nil)

	for _, desc := range []string{"too short", strings.Repeat("a", 2001)} {
		_, err := f.svc.CreateAIQuote(context.Background(), ports.AIQuoteRequest{UserDescription: desc, State: "CA", ClientInfo: testClient})
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("len %d: expected invalid input, got %v", len(desc), err)
		}
	}
	if f.recommender.got != "" {
		t.Fatalf("recommender must not be called")
	}
}

func TestCreateAIQuoteUnknownStateSkipsRecommender(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.recommender.insights = &domain.AIInsights{RecommendedServices: []string{"contract_review"}}

	_, err := f.svc.CreateAIQuote(context.Background(), ports.AIQuoteRequest{
		UserDescription: "I need help reviewing a lease agreement.",
		State:           "ZZ",
		ClientInfo:      testClient,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if f.recommender.got != "" {
		t.Fatalf("recommender must not be called for an unknown state")
	}
	if len(f.renderer.reqs) != 0 {
		t.Fatalf("renderer must not be called")
	}
}

func TestCreateAIQuoteNoServices(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.recommender.insights = &domain.AIInsights{Reasoning: "unclear"}

	_, err := f.svc.CreateAIQuote(context.Background(), ports.AIQuoteRequest{
		UserDescription: "Something vague happened to me yesterday.",
		State:           "CA",
		ClientInfo:      testClient,
	})
	if !domain.IsKind(err, domain.ErrNoServicesRecommended) {
		t.Fatalf("expected no services error, got %v", err)
	}
}

func TestCreateAIQuoteRecommenderFailure(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.recommender.err = errors.New("connection refused")

	_, err := f.svc.CreateAIQuote(context.Background(), ports.AIQuoteRequest{
		UserDescription: "I need help reviewing a lease agreement.",
		State:           "CA",
		ClientInfo:      testClient,
	})
	if !domain.IsKind(err, domain.ErrAIService) {
		t.Fatalf("expected ai service error, got %v", err)
	}
	if len(f.registry.quotes) != 0 {
		t.Fatalf("no quote should be registered")
	}
}

func TestCreateQuoteRenderFailure(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.renderer.err = errors.New("remote 500")

	_, err := f.svc.CreateManualQuote(context.Background(), ports.ManualQuoteRequest{
		SelectedServices: []string{"contract_review"},
		State:            "CA",
		ClientInfo:       testClient,
	})
	if !domain.IsKind(err, domain.ErrRenderFailed) {
		t.Fatalf("expected render failure, got %v", err)
	}
	if len(f.registry.quotes) != 1 {
		t.Fatalf("quote stays registered after render failure")
	}
	if len(f.persister.calls) != 0 || len(f.queue.jobs) != 0 {
		t.Fatalf("nothing should be stored or queued")
	}
	if len(f.observer.rendered) != 1 || f.observer.rendered[0] != RenderStatusFailed {
		t.Fatalf("expected failed render event, got %v", f.observer.rendered)
	}
}

func TestCreateQuoteSkipsCompression(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*QuoteServiceDeps)
		setup    func(*serviceFixture)
		wantPath bool
	}{
		{
			name:     "queue full",
			setup:    func(f *serviceFixture) { f.queue.err = domain.WrapError(domain.ErrTemporary, "enqueue", errors.New("queue full")) },
			wantPath: true,
		},
		{
			name:     "no queue",
			mutate:   func(d *QuoteServiceDeps) { d.Queue = nil },
			wantPath: true,
		},
		{
			name:  "store failed",
			setup: func(f *serviceFixture) { f.persister.errs = []error{errors.New("disk full")} },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture(t, tc.mutate)
			if tc.setup != nil {
				tc.setup(f)
			}
			out, err := f.svc.CreateManualQuote(context.Background(), ports.ManualQuoteRequest{
				SelectedServices: []string{"contract_review"},
				State:            "TX",
				ClientInfo:       testClient,
			})
			if err != nil {
				t.Fatalf("request must succeed, got %v", err)
			}
			if out.Document.CompressionStatus != domain.CompressionStatusSkipped {
				t.Fatalf("expected SKIPPED, got %q", out.Document.CompressionStatus)
			}
			if (out.Document.StoredAt != "") != tc.wantPath {
				t.Fatalf("unexpected storedAt %q", out.Document.StoredAt)
			}
			if len(out.Document.Buffer) == 0 {
				t.Fatalf("document bytes must still be returned")
			}
		})
	}
}

func TestCreateQuoteRegistryFailure(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.registry.putErr = errors.New("redis down")

	_, err := f.svc.CreateManualQuote(context.Background(), ports.ManualQuoteRequest{
		SelectedServices: []string{"contract_review"},
		State:            "CA",
		ClientInfo:       testClient,
	})
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(f.renderer.reqs) != 0 {
		t.Fatalf("render must not run")
	}
}

func TestGetQuote(t *testing.T) {
	f := newServiceFixture(t, nil)
	out, err := f.svc.CreateManualQuote(context.Background(), ports.ManualQuoteRequest{
		SelectedServices: []string{"contract_review"},
		State:            "CA",
		ClientInfo:       testClient,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.GetQuote(context.Background(), " "+out.Quote.QuoteID+" ")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if got.QuoteID != out.Quote.QuoteID {
		t.Fatalf("unexpected quote %q", got.QuoteID)
	}
	if _, err := f.svc.GetQuote(context.Background(), "QT-NOPE"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogView(t *testing.T) {
	f := newServiceFixture(t, nil)
	view := f.svc.Catalog()

	if len(view.Services) == 0 || len(view.States) == 0 {
		t.Fatalf("expected catalog tables, got %+v", view)
	}
	if view.Pricing.Currency != domain.CurrencyUSD {
		t.Fatalf("unexpected currency %q", view.Pricing.Currency)
	}
}

func TestHealthReportsDegradedChecks(t *testing.T) {
	f := newServiceFixture(t, func(d *QuoteServiceDeps) {
		d.Checks = map[string]HealthCheck{
			"storage":     func(context.Context) error { return nil },
			"pdfServices": func(context.Context) error { return errors.New("credentials missing") },
		}
	})

	status := f.svc.Health(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", status.Status)
	}
	if status.Service != "quote-api-test" {
		t.Fatalf("unexpected service name %q", status.Service)
	}
	if status.Details["storage"] != "ok" || status.Details["pdfServices"] != "credentials missing" {
		t.Fatalf("unexpected details: %+v", status.Details)
	}
	if status.Details["quotesInRegistry"] != 0 {
		t.Fatalf("expected registry count, got %+v", status.Details["quotesInRegistry"])
	}
}

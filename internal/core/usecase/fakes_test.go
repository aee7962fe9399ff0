package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

type compressionAPIFake struct {
	mu sync.Mutex

	uploadID    string
	uploadErr   error
	taskID      string
	startErr    error
	statuses    []*domain.CompressionTask
	statusErrs  []error
	downloaded  []byte
	downloadErr error

	polls        int
	startLevel   domain.CompressionLevel
	downloadedID string
}

func (f *compressionAPIFake) Upload(context.Context, []byte, string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadID, nil
}

func (f *compressionAPIFake) StartCompression(_ context.Context, _ string, level domain.CompressionLevel) (string, error) {
	f.startLevel = level
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.taskID, nil
}

// TaskStatus replays statuses/statusErrs in order, repeating the last entry.
func (f *compressionAPIFake) TaskStatus(context.Context, string) (*domain.CompressionTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if i < len(f.statusErrs) && f.statusErrs[i] != nil {
		return nil, f.statusErrs[i]
	}
	if len(f.statuses) == 0 {
		return &domain.CompressionTask{Status: domain.TaskProcessing}, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	task := *f.statuses[i]
	return &task, nil
}

func (f *compressionAPIFake) Download(_ context.Context, documentID, _ string) ([]byte, error) {
	f.downloadedID = documentID
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.downloaded, nil
}

func (f *compressionAPIFake) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

type memoryStorageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func newMemoryStorage() *memoryStorageFake {
	return &memoryStorageFake{objects: map[string][]byte{}}
}

func (s *memoryStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return nil
}

func (s *memoryStorageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *memoryStorageFake) List(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	seen := map[string]domain.ObjectInfo{}
	for key, raw := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		name, _, nested := strings.Cut(rest, "/")
		seen[name] = domain.ObjectInfo{Key: prefix + name, Name: name, Size: int64(len(raw)), IsDir: nested}
	}
	out := make([]domain.ObjectInfo, 0, len(seen))
	for _, info := range seen {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memoryStorageFake) Path(key string) string {
	return "/data/" + key
}

type ledgerFake struct {
	mu        sync.Mutex
	records   []domain.StoredRecord
	appendErr error
}

func (l *ledgerFake) Append(_ context.Context, r domain.StoredRecord) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return nil
}

func (l *ledgerFake) Records(context.Context) ([]domain.StoredRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.StoredRecord(nil), l.records...), nil
}

type indexFake struct {
	records   map[string]domain.StoredRecord
	upsertErr error
	getErr    error
}

func newIndexFake() *indexFake {
	return &indexFake{records: map[string]domain.StoredRecord{}}
}

func (i *indexFake) Upsert(_ context.Context, r domain.StoredRecord) error {
	if i.upsertErr != nil {
		return i.upsertErr
	}
	i.records[r.QuoteID] = r
	return nil
}

func (i *indexFake) Get(_ context.Context, quoteID string) (*domain.StoredRecord, error) {
	if i.getErr != nil {
		return nil, i.getErr
	}
	r, ok := i.records[quoteID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get", errors.New(quoteID))
	}
	return &r, nil
}

type persistCall struct {
	req domain.PersistRequest
}

type persisterFake struct {
	calls []persistCall
	errs  []error
}

func (p *persisterFake) Persist(_ context.Context, req domain.PersistRequest) (*domain.StoredResult, error) {
	i := len(p.calls)
	p.calls = append(p.calls, persistCall{req: req})
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	key := "pdfs/" + domain.DocumentFilename(req.Quote)
	return &domain.StoredResult{
		QuoteID:     req.Quote.QuoteID,
		DocumentKey: key,
		PDFPath:     "/data/" + key,
	}, nil
}

type registryFake struct {
	quotes map[string]*domain.Quote
	putErr error
}

func newRegistryFake() *registryFake {
	return &registryFake{quotes: map[string]*domain.Quote{}}
}

func (r *registryFake) Put(_ context.Context, q *domain.Quote) error {
	if r.putErr != nil {
		return r.putErr
	}
	r.quotes[q.QuoteID] = q.Clone()
	return nil
}

func (r *registryFake) Get(_ context.Context, id string) (*domain.Quote, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get quote", errors.New(id))
	}
	return q.Clone(), nil
}

func (r *registryFake) Count(context.Context) (int, error) {
	return len(r.quotes), nil
}

type recommenderFake struct {
	insights *domain.AIInsights
	err      error
	got      string
}

func (r *recommenderFake) Recommend(_ context.Context, description string) (*domain.AIInsights, error) {
	r.got = description
	return r.insights, r.err
}

type rendererFake struct {
	err  error
	reqs []domain.RenderRequest
}

func (r *rendererFake) Render(_ context.Context, req domain.RenderRequest) (*domain.RenderedDocument, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	data := []byte("%PDF-1.4 rendered")
	return &domain.RenderedDocument{
		Filename:    domain.DocumentFilename(req.Quote),
		Bytes:       data,
		Size:        len(data),
		MimeType:    domain.MimeTypePDF,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

type queueFake struct {
	jobs []domain.CompressionJob
	err  error
}

func (q *queueFake) Enqueue(_ context.Context, job domain.CompressionJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *queueFake) Subscribe(ctx context.Context, _ func(context.Context, domain.CompressionJob) error) error {
	<-ctx.Done()
	return nil
}

type observerFake struct {
	created  []string
	failed   []string
	rendered []string
}

func (o *observerFake) QuoteCreated(_ context.Context, _ *domain.Quote, mode string) {
	o.created = append(o.created, mode)
}

func (o *observerFake) QuoteFailed(mode string) { o.failed = append(o.failed, mode) }

func (o *observerFake) DocumentRendered(status string) { o.rendered = append(o.rendered, status) }

type pipelineObserverFake struct {
	outcomes []string
	ratios   []float64
	lags     []time.Duration
}

func (o *pipelineObserverFake) StartJob() func(string) {
	return func(outcome string) { o.outcomes = append(o.outcomes, outcome) }
}

func (o *pipelineObserverFake) ObserveQueueLag(d time.Duration) { o.lags = append(o.lags, d) }

func (o *pipelineObserverFake) ObserveCompressionRatio(r float64) { o.ratios = append(o.ratios, r) }

func sampleQuote() *domain.Quote {
	return &domain.Quote{
		QuoteID:    "QT-LOYW3V28-AB12C",
		Timestamp:  time.Date(2025, time.January, 31, 15, 0, 0, 0, time.UTC),
		ClientInfo: domain.ClientInfo{Name: "Jane Doe", Email: "Jane.Doe+work@Example.com"},
		Services: []domain.ServiceCatalogEntry{
			{Value: "contract_review", Label: "Contract Review", BasePrice: domain.Dollars(200)},
			{Value: "legal_consultation", Label: "Legal Consultation", BasePrice: domain.Dollars(150)},
		},
		State:   domain.StateTaxEntry{Value: "CA", Label: "California", Rate: domain.RateFromFloat(0.0825)},
		Pricing: domain.Pricing{BasePrice: 35000, TaxRate: 0.0825, TaxAmount: 2888, TotalAmount: 37888},
		Status:  domain.QuoteStatusGenerated,
	}
}

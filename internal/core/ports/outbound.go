package ports

import (
	"context"
	"io"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

// Catalog exposes the fixed service and state tax tables.
type Catalog interface {
	Services() []domain.ServiceCatalogEntry
	States() []domain.StateTaxEntry
	Service(value string) (domain.ServiceCatalogEntry, bool)
	State(code string) (domain.StateTaxEntry, bool)
}

// QuoteRegistry keeps generated quotes by id.
type QuoteRegistry interface {
	Put(ctx context.Context, quote *domain.Quote) error
	Get(ctx context.Context, quoteID string) (*domain.Quote, error)
	Count(ctx context.Context) (int, error)
}

// ServiceRecommender infers catalog services from a free-text description.
type ServiceRecommender interface {
	Recommend(ctx context.Context, description string) (*domain.AIInsights, error)
}

// DocumentRenderer turns a quote into PDF bytes.
type DocumentRenderer interface {
	Render(ctx context.Context, req domain.RenderRequest) (*domain.RenderedDocument, error)
}

// CompressionAPI is the remote document compression service.
type CompressionAPI interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	StartCompression(ctx context.Context, documentID string, level domain.CompressionLevel) (string, error)
	TaskStatus(ctx context.Context, taskID string) (*domain.CompressionTask, error)
	Download(ctx context.Context, documentID, filename string) ([]byte, error)
}

// ObjectStorage stores quote documents and metadata files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)
	Path(key string) string
}

// Ledger is the append-only storage transaction log.
type Ledger interface {
	Append(ctx context.Context, record domain.StoredRecord) error
	Records(ctx context.Context) ([]domain.StoredRecord, error)
}

// LedgerExporter writes ledger rows in a downloadable format.
type LedgerExporter interface {
	Export(records []domain.StoredRecord, w io.Writer) error
}

// RecordIndex holds the latest stored record per quote.
type RecordIndex interface {
	Upsert(ctx context.Context, record domain.StoredRecord) error
	Get(ctx context.Context, quoteID string) (*domain.StoredRecord, error)
}

// CompressionQueue carries compression jobs to workers.
type CompressionQueue interface {
	Enqueue(ctx context.Context, job domain.CompressionJob) error
	Subscribe(ctx context.Context, handler func(context.Context, domain.CompressionJob) error) error
}

// QuoteObserver records business events for generated quotes.
type QuoteObserver interface {
	QuoteCreated(ctx context.Context, quote *domain.Quote, mode string)
	QuoteFailed(mode string)
	DocumentRendered(status string)
}

// PipelineObserver records background compression outcomes.
type PipelineObserver interface {
	StartJob() func(outcome string)
	ObserveQueueLag(lag time.Duration)
	ObserveCompressionRatio(ratio float64)
}

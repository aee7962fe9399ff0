package ports

import (
	"context"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

// ManualQuoteRequest is a quote for an explicit service selection.
type ManualQuoteRequest struct {
	SelectedServices []string
	State            string
	ClientInfo       domain.ClientInfo
}

// AIQuoteRequest is a quote whose services are inferred from a description.
type AIQuoteRequest struct {
	UserDescription string
	State           string
	ClientInfo      domain.ClientInfo
}

// QuoteCreator is the inbound contract for quote generation with a document.
type QuoteCreator interface {
	CreateManualQuote(ctx context.Context, req ManualQuoteRequest) (*domain.QuoteOutcome, error)
	CreateAIQuote(ctx context.Context, req AIQuoteRequest) (*domain.QuoteOutcome, error)
}

// QuoteReader is the read model for generated quotes and the catalog.
type QuoteReader interface {
	GetQuote(ctx context.Context, quoteID string) (*domain.Quote, error)
	Catalog() domain.CatalogView
	Health(ctx context.Context) domain.HealthStatus
}

// DocumentArchive is the read side of persisted quote documents.
type DocumentArchive interface {
	OpenDocument(ctx context.Context, quoteID string) (*domain.StoredDocument, error)
	History(ctx context.Context, email string) ([]domain.StoredMetadata, error)
	StorageStats(ctx context.Context) (*domain.StorageStats, error)
	LedgerRecords(ctx context.Context) ([]domain.StoredRecord, error)
}

// CompressionJobProcessor is the inbound contract for queued compression work.
type CompressionJobProcessor interface {
	ProcessJob(ctx context.Context, job domain.CompressionJob) error
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

// Registry keeps quotes for the process lifetime. Stored and returned values
// are copies, so callers cannot mutate registry state.
type Registry struct {
	mu     sync.RWMutex
	quotes map[string]*domain.Quote
}

func New() *Registry {
	return &Registry{quotes: make(map[string]*domain.Quote)}
}

func (r *Registry) Put(_ context.Context, quote *domain.Quote) error {
	if quote == nil || quote.QuoteID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "put quote", fmt.Errorf("quote id is required"))
	}
	r.mu.Lock()
	r.quotes[quote.QuoteID] = quote.Clone()
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(_ context.Context, quoteID string) (*domain.Quote, error) {
	r.mu.RLock()
	q, ok := r.quotes[quoteID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get quote", fmt.Errorf("quote_id=%s", quoteID))
	}
	return q.Clone(), nil
}

func (r *Registry) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.quotes), nil
}

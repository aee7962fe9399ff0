// Package redis shares generated quotes between processes through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces keys as <prefix>:quote:<id>.
	KeyPrefix string
	// TTL of zero keeps quotes until deleted.
	TTL time.Duration
}

type Registry struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func New(opts Options) (*Registry, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.KeyPrefix, opts.TTL), nil
}

func NewWithClient(client goredis.UniversalClient, prefix string, ttl time.Duration) *Registry {
	if prefix == "" {
		prefix = "quotes"
	}
	return &Registry{client: client, prefix: prefix, ttl: ttl}
}

func (r *Registry) key(id string) string {
	return r.prefix + ":quote:" + id
}

func (r *Registry) Put(ctx context.Context, quote *domain.Quote) error {
	if quote == nil || quote.QuoteID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "put quote", errors.New("quote id is required"))
	}
	payload, err := json.Marshal(quote)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "encode quote", err)
	}
	if err := r.client.Set(ctx, r.key(quote.QuoteID), payload, r.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "put quote", err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, quoteID string) (*domain.Quote, error) {
	raw, err := r.client.Get(ctx, r.key(quoteID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.WrapError(domain.ErrNotFound, "get quote", fmt.Errorf("quote_id=%s", quoteID))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "get quote", err)
	}
	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "decode quote", err)
	}
	return &quote, nil
}

// Count scans live keys, so expired quotes are never counted.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+":quote:*", 200).Result()
		if err != nil {
			return 0, domain.WrapError(domain.ErrTemporary, "count quotes", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Registry) Close() error {
	return r.client.Close()
}

// Package telemetry records business metrics through OpenTelemetry and
// exports them on the process's Prometheus registry.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

type QuoteTelemetry struct {
	provider    *sdkmetric.MeterProvider
	generated   otelmetric.Int64Counter
	failed      otelmetric.Int64Counter
	totalAmount otelmetric.Float64Histogram
	rendered    otelmetric.Int64Counter
}

// New wires an otel meter provider whose readings appear on registerer.
func New(serviceName string, registerer prometheus.Registerer) (*QuoteTelemetry, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	generated, err := meter.Int64Counter(
		"quotes.generated",
		otelmetric.WithDescription("Number of quotes generated"),
	)
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter(
		"quotes.failed",
		otelmetric.WithDescription("Number of quote requests that failed"),
	)
	if err != nil {
		return nil, err
	}
	totalAmount, err := meter.Float64Histogram(
		"quotes.total_amount",
		otelmetric.WithDescription("Quoted total including tax"),
		otelmetric.WithUnit("USD"),
	)
	if err != nil {
		return nil, err
	}
	rendered, err := meter.Int64Counter(
		"documents.rendered",
		otelmetric.WithDescription("Quote documents rendered"),
	)
	if err != nil {
		return nil, err
	}

	return &QuoteTelemetry{
		provider:    provider,
		generated:   generated,
		failed:      failed,
		totalAmount: totalAmount,
		rendered:    rendered,
	}, nil
}

func (t *QuoteTelemetry) QuoteCreated(ctx context.Context, quote *domain.Quote, mode string) {
	attrs := otelmetric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("state", quote.State.Value),
		attribute.Int("services", len(quote.Services)),
	)
	t.generated.Add(ctx, 1, attrs)
	t.totalAmount.Record(ctx, quote.Pricing.TotalAmount.Float64(), attrs)
}

func (t *QuoteTelemetry) QuoteFailed(mode string) {
	t.failed.Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("mode", mode)))
}

func (t *QuoteTelemetry) DocumentRendered(status string) {
	t.rendered.Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

func (t *QuoteTelemetry) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.provider.Shutdown(ctx)
}

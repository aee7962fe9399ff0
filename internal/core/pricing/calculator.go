// Package pricing computes itemized quotes for bundles of catalog services.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
)

const (
	MaxServices       = 10
	maxNameLength     = 100
	maxEmailLength    = 100
	maxPhoneLength    = 20
	discountThreshold = 3
)

// discountMultiplier is applied to the base price above discountThreshold services.
const discountMultiplier = 0.9

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Calculator struct {
	catalog ports.Catalog
	ids     *QuoteIDGenerator
	now     func() time.Time
}

type Option func(*Calculator)

func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

func WithIDGenerator(ids *QuoteIDGenerator) Option {
	return func(c *Calculator) {
		if ids != nil {
			c.ids = ids
		}
	}
}

func NewCalculator(catalog ports.Catalog, opts ...Option) *Calculator {
	c := &Calculator{catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = NewQuoteIDGenerator(c.now, nil)
	}
	return c
}

// Compute validates the request and prices the matched services in the given state.
func (c *Calculator) Compute(serviceIDs []string, stateCode string, client domain.ClientInfo, aiGenerated bool) (*domain.Quote, error) {
	client = normalizeClient(client)
	if err := validateRequest(serviceIDs, stateCode, client); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compute quote", err)
	}

	state, ok := c.catalog.State(stateCode)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compute quote", fmt.Errorf("Invalid state code: %s", stateCode))
	}

	services := c.matchServices(serviceIDs)
	if len(services) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "compute quote", errors.New("No valid services found for the provided service codes"))
	}

	return &domain.Quote{
		QuoteID:    c.ids.Next(),
		Timestamp:  c.now().UTC(),
		ClientInfo: client,
		Services:   services,
		State:      state,
		Pricing:    Price(services, state),
		Metadata: domain.QuoteMetadata{
			IsAIGenerated: aiGenerated,
			Version:       domain.QuoteVersion,
			Currency:      domain.CurrencyUSD,
		},
		Status: domain.QuoteStatusGenerated,
	}, nil
}

// Price applies the multi-service discount and the state tax.
func Price(services []domain.ServiceCatalogEntry, state domain.StateTaxEntry) domain.Pricing {
	var original domain.Cents
	for _, s := range services {
		original += s.BasePrice
	}

	multiplier := 1.0
	base := original
	if len(services) > discountThreshold {
		multiplier = discountMultiplier
		base = discounted(original)
	}

	tax := state.Rate.Apply(base)
	return domain.Pricing{
		BasePrice:   base,
		TaxRate:     state.Rate.Float64(),
		TaxAmount:   tax,
		TotalAmount: base + tax,
		Breakdown: domain.PricingBreakdown{
			OriginalBasePrice:  original,
			ComplexityDiscount: original - base,
			AppliedMultiplier:  multiplier,
		},
	}
}

// discounted returns amount*0.9 rounded half-up to whole currency units.
func discounted(amount domain.Cents) domain.Cents {
	num := int64(amount) * 9
	const den = 10 * 100
	if num < 0 {
		return -domain.Dollars((-num + den/2) / den)
	}
	return domain.Dollars((num + den/2) / den)
}

func (c *Calculator) matchServices(ids []string) []domain.ServiceCatalogEntry {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = struct{}{}
	}
	matched := make([]domain.ServiceCatalogEntry, 0, len(wanted))
	for _, s := range c.catalog.Services() {
		if _, ok := wanted[s.Value]; ok {
			matched = append(matched, s)
		}
	}
	return matched
}

func normalizeClient(client domain.ClientInfo) domain.ClientInfo {
	return domain.ClientInfo{
		Name:  strings.TrimSpace(client.Name),
		Email: strings.ToLower(strings.TrimSpace(client.Email)),
		Phone: strings.TrimSpace(client.Phone),
	}
}

func validateRequest(serviceIDs []string, stateCode string, client domain.ClientInfo) error {
	switch {
	case len(serviceIDs) == 0:
		return errors.New("At least one service must be selected")
	case len(serviceIDs) > MaxServices:
		return fmt.Errorf("Maximum of %d services can be selected at once", MaxServices)
	case strings.TrimSpace(stateCode) == "":
		return errors.New("State must be provided")
	case client.Name == "":
		return errors.New("Client name is required")
	case len(client.Name) > maxNameLength:
		return fmt.Errorf("Client name must be at most %d characters", maxNameLength)
	case len(client.Email) > maxEmailLength || !emailPattern.MatchString(client.Email):
		return errors.New("Valid email address is required")
	case len(client.Phone) > maxPhoneLength:
		return fmt.Errorf("Phone number must be at most %d characters", maxPhoneLength)
	}
	return nil
}

// ValidEmail reports whether email has the shape local@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

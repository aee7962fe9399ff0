// Package catalog loads the fixed legal-service and state tax tables.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

//go:embed catalog.yaml
var embedded []byte

type fileFormat struct {
	Services []serviceRow `yaml:"services"`
	States   []stateRow   `yaml:"states"`
}

type serviceRow struct {
	Value       string  `yaml:"value"`
	Label       string  `yaml:"label"`
	BasePrice   float64 `yaml:"base_price"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
}

type stateRow struct {
	Value   string  `yaml:"value"`
	Label   string  `yaml:"label"`
	TaxRate float64 `yaml:"tax_rate"`
}

// Catalog is immutable after load and safe for concurrent use.
type Catalog struct {
	services  []domain.ServiceCatalogEntry
	states    []domain.StateTaxEntry
	byService map[string]domain.ServiceCatalogEntry
	byState   map[string]domain.StateTaxEntry
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// Load reads a catalog file, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(raw.Services) == 0 {
		return nil, errors.New("catalog has no services")
	}
	if len(raw.States) == 0 {
		return nil, errors.New("catalog has no states")
	}

	c := &Catalog{
		services:  make([]domain.ServiceCatalogEntry, 0, len(raw.Services)),
		states:    make([]domain.StateTaxEntry, 0, len(raw.States)),
		byService: make(map[string]domain.ServiceCatalogEntry, len(raw.Services)),
		byState:   make(map[string]domain.StateTaxEntry, len(raw.States)),
	}
	for _, row := range raw.Services {
		if row.Value == "" || row.Label == "" {
			return nil, fmt.Errorf("service %q: value and label are required", row.Value)
		}
		if row.BasePrice <= 0 {
			return nil, fmt.Errorf("service %q: base price must be positive", row.Value)
		}
		if _, dup := c.byService[row.Value]; dup {
			return nil, fmt.Errorf("duplicate service %q", row.Value)
		}
		entry := domain.ServiceCatalogEntry{
			Value:       row.Value,
			Label:       row.Label,
			BasePrice:   domain.Cents(math.Round(row.BasePrice * 100)),
			Description: row.Description,
			Category:    row.Category,
		}
		c.services = append(c.services, entry)
		c.byService[entry.Value] = entry
	}
	for _, row := range raw.States {
		if row.Value == "" || row.Label == "" {
			return nil, fmt.Errorf("state %q: value and label are required", row.Value)
		}
		if row.TaxRate < 0 || row.TaxRate >= 1 {
			return nil, fmt.Errorf("state %q: tax rate %v out of range", row.Value, row.TaxRate)
		}
		if _, dup := c.byState[row.Value]; dup {
			return nil, fmt.Errorf("duplicate state %q", row.Value)
		}
		entry := domain.StateTaxEntry{Value: row.Value, Label: row.Label, Rate: domain.RateFromFloat(row.TaxRate)}
		c.states = append(c.states, entry)
		c.byState[entry.Value] = entry
	}
	if _, ok := c.byState[domain.OtherStateCode]; !ok {
		return nil, fmt.Errorf("catalog must define the %s state", domain.OtherStateCode)
	}
	return c, nil
}

// Services returns a copy in catalog order.
func (c *Catalog) Services() []domain.ServiceCatalogEntry {
	return append([]domain.ServiceCatalogEntry(nil), c.services...)
}

func (c *Catalog) States() []domain.StateTaxEntry {
	return append([]domain.StateTaxEntry(nil), c.states...)
}

func (c *Catalog) Service(value string) (domain.ServiceCatalogEntry, bool) {
	s, ok := c.byService[value]
	return s, ok
}

func (c *Catalog) State(code string) (domain.StateTaxEntry, bool) {
	s, ok := c.byState[code]
	return s, ok
}

// BaseTaxRate is the rate applied to clients outside the listed states.
func (c *Catalog) BaseTaxRate() domain.Rate {
	return c.byState[domain.OtherStateCode].Rate
}

// View is the client-facing catalog with pricing defaults.
func (c *Catalog) View() domain.CatalogView {
	return domain.CatalogView{
		Services: c.Services(),
		States:   c.States(),
		Pricing: domain.PricingInfo{
			BaseTaxRate: c.BaseTaxRate().Float64(),
			Currency:    domain.CurrencyUSD,
		},
	}
}

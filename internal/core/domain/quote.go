package domain

import (
	"encoding/json"
	"time"
)

const (
	QuoteStatusGenerated = "generated"
	QuoteVersion         = "1.0"
	CurrencyUSD          = "USD"
	// OtherStateCode is the sentinel for clients outside the listed states.
	OtherStateCode = "OTHER"
)

// ServiceCatalogEntry is a fixed legal-service offering.
type ServiceCatalogEntry struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	BasePrice   Cents  `json:"basePrice"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// StateTaxEntry is a state (or OTHER) with its sales tax rate.
type StateTaxEntry struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Rate  Rate   `json:"-"`
}

type stateTaxEntryJSON struct {
	Label   string  `json:"label"`
	Value   string  `json:"value"`
	TaxRate float64 `json:"taxRate"`
}

func (s StateTaxEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateTaxEntryJSON{Label: s.Label, Value: s.Value, TaxRate: s.Rate.Float64()})
}

func (s *StateTaxEntry) UnmarshalJSON(data []byte) error {
	var raw stateTaxEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Label = raw.Label
	s.Value = raw.Value
	s.Rate = RateFromFloat(raw.TaxRate)
	return nil
}

type ClientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type PricingBreakdown struct {
	OriginalBasePrice  Cents   `json:"originalBasePrice"`
	ComplexityDiscount Cents   `json:"complexityDiscount"`
	AppliedMultiplier  float64 `json:"appliedMultiplier"`
}

type Pricing struct {
	BasePrice   Cents            `json:"basePrice"`
	TaxRate     float64          `json:"taxRate"`
	TaxAmount   Cents            `json:"taxAmount"`
	TotalAmount Cents            `json:"totalAmount"`
	Breakdown   PricingBreakdown `json:"breakdown"`
}

type QuoteMetadata struct {
	IsAIGenerated bool   `json:"isAIGenerated"`
	Version       string `json:"version"`
	Currency      string `json:"currency"`
}

// Quote is immutable once created by the pricing calculator.
type Quote struct {
	QuoteID    string                `json:"quoteId"`
	Timestamp  time.Time             `json:"timestamp"`
	ClientInfo ClientInfo            `json:"clientInfo"`
	Services   []ServiceCatalogEntry `json:"services"`
	State      StateTaxEntry         `json:"state"`
	Pricing    Pricing               `json:"pricing"`
	Metadata   QuoteMetadata         `json:"metadata"`
	Status     string                `json:"status"`
}

// Clone returns a deep copy so registries never share slices with callers.
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	out := *q
	out.Services = append([]ServiceCatalogEntry(nil), q.Services...)
	return &out
}

func (q *Quote) ServiceLabels() []string {
	labels := make([]string, 0, len(q.Services))
	for _, s := range q.Services {
		labels = append(labels, s.Label)
	}
	return labels
}

// AIInsights is the recommender's reading of a free-text description.
type AIInsights struct {
	RecommendedServices       []string `json:"recommendedServices"`
	Reasoning                 string   `json:"reasoning"`
	Confidence                float64  `json:"confidence"`
	AdditionalRecommendations []string `json:"additionalRecommendations"`
	Urgency                   string   `json:"urgency,omitempty"`
	EstimatedComplexity       string   `json:"estimatedComplexity,omitempty"`
}

// PricingInfo is the catalog-level pricing metadata exposed to clients.
type PricingInfo struct {
	BaseTaxRate float64 `json:"baseTaxRate"`
	Currency    string  `json:"currency"`
}

type CatalogView struct {
	Services []ServiceCatalogEntry `json:"services"`
	States   []StateTaxEntry       `json:"states"`
	Pricing  PricingInfo           `json:"pricing"`
}

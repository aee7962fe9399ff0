package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

type errorEnvelope struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type clientInfoRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c clientInfoRequest) domain() domain.ClientInfo {
	return domain.ClientInfo{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

type aiQuoteRequest struct {
	UserDescription string            `json:"userDescription"`
	State           string            `json:"state"`
	ClientInfo      clientInfoRequest `json:"clientInfo"`
}

type manualQuoteRequest struct {
	SelectedServices []string          `json:"selectedServices"`
	State            string            `json:"state"`
	ClientInfo       clientInfoRequest `json:"clientInfo"`
}

type quoteResponse struct {
	Success        bool                `json:"success"`
	Quote          *domain.Quote       `json:"quote"`
	Document       domain.DocumentInfo `json:"document"`
	AIInsights     *domain.AIInsights  `json:"aiInsights,omitempty"`
	ProcessingTime int64               `json:"processingTime"`
	Message        string              `json:"message"`
}

type storageStatsResponse struct {
	Success    bool                 `json:"success"`
	Statistics *domain.StorageStats `json:"statistics"`
	Timestamp  time.Time            `json:"timestamp"`
}

type historyResponse struct {
	Success     bool                    `json:"success"`
	UserEmail   string                  `json:"userEmail"`
	QuotesCount int                     `json:"quotesCount"`
	Quotes      []domain.StoredMetadata `json:"quotes"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, title, message string) {
	writeJSON(w, status, errorEnvelope{Error: title, Message: message})
}

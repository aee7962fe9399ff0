package domain

import (
	"io"
	"time"
)

type StorageStage string

const (
	StageOriginal   StorageStage = "original"
	StageCompressed StorageStage = "compressed"
	StageFallback   StorageStage = "fallback"
)

// PersistRequest is one write of a quote document and its metadata.
type PersistRequest struct {
	Quote            *Quote
	Insights         *AIInsights
	UserDescription  string
	Document         []byte
	OriginalSize     int
	CompressedSize   int
	CompressionRatio float64
	Stage            StorageStage
}

type StoredResult struct {
	RecordID     string    `json:"recordId"`
	QuoteID      string    `json:"quoteId"`
	PDFPath      string    `json:"pdfPath"`
	DocumentKey  string    `json:"documentKey"`
	MetadataPath string    `json:"userDataPath"`
	Timestamp    time.Time `json:"timestamp"`
}

// StoredRecord is one ledger row.
type StoredRecord struct {
	RecordID         string       `json:"recordId" dynamodbav:"record_id"`
	QuoteID          string       `json:"quoteId" dynamodbav:"quote_id"`
	Timestamp        time.Time    `json:"timestamp" dynamodbav:"timestamp"`
	ClientName       string       `json:"clientName" dynamodbav:"client_name"`
	ClientEmail      string       `json:"clientEmail" dynamodbav:"client_email"`
	ClientPhone      string       `json:"clientPhone" dynamodbav:"client_phone"`
	Services         string       `json:"services" dynamodbav:"services"`
	State            string       `json:"state" dynamodbav:"state"`
	BasePrice        Cents        `json:"basePrice" dynamodbav:"base_price_cents"`
	TaxAmount        Cents        `json:"taxAmount" dynamodbav:"tax_amount_cents"`
	TotalAmount      Cents        `json:"totalAmount" dynamodbav:"total_amount_cents"`
	DocumentKey      string       `json:"documentKey" dynamodbav:"document_key"`
	PDFPath          string       `json:"pdfPath" dynamodbav:"pdf_path"`
	OriginalSize     int          `json:"originalSize" dynamodbav:"original_size"`
	CompressedSize   int          `json:"compressedSize" dynamodbav:"compressed_size"`
	CompressionRatio float64      `json:"compressionRatio" dynamodbav:"compression_ratio"`
	Stage            StorageStage `json:"stage" dynamodbav:"stage"`
	Fallback         bool         `json:"fallback" dynamodbav:"fallback"`
	AIInsightsUsed   bool         `json:"aiInsightsUsed" dynamodbav:"ai_insights_used"`
	UserDescription  string       `json:"userDescription" dynamodbav:"user_description"`
}

type PDFInfo struct {
	Filename         string       `json:"filename"`
	Path             string       `json:"path"`
	OriginalSize     int          `json:"originalSize"`
	CompressedSize   int          `json:"compressedSize"`
	CompressionRatio float64      `json:"compressionRatio"`
	Stage            StorageStage `json:"stage"`
	Fallback         bool         `json:"fallback"`
}

// StoredMetadata is the per-quote JSON document kept next to a client's history.
type StoredMetadata struct {
	QuoteID         string      `json:"quoteId"`
	Timestamp       time.Time   `json:"timestamp"`
	Quote           *Quote      `json:"quote"`
	AIInsights      *AIInsights `json:"aiInsights"`
	UserDescription string      `json:"userDescription"`
	PDFInfo         PDFInfo     `json:"pdfInfo"`
}

type StorageStats struct {
	TotalQuotes          int     `json:"totalQuotes"`
	TotalUsers           int     `json:"totalUsers"`
	TotalPDFBytes        int64   `json:"totalPdfBytes"`
	TotalOriginalBytes   int64   `json:"totalOriginalBytes"`
	TotalCompressedBytes int64   `json:"totalCompressedBytes"`
	CompressionSavings   int64   `json:"compressionSavings"`
	CompressionRatio     float64 `json:"compressionRatio"`
	LedgerRows           int     `json:"ledgerRows"`
	FallbackRecords      int     `json:"fallbackRecords"`
	StorageDirectory     string  `json:"storageDirectory"`
}

// StoredDocument is an open handle on a stored quote PDF.
type StoredDocument struct {
	Filename string
	Size     int64
	Body     io.ReadCloser
}

// ObjectInfo describes one entry in object storage.
type ObjectInfo struct {
	Key     string
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

type HealthStatus struct {
	Status    string         `json:"status"`
	Service   string         `json:"service"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

package domain

import (
	"fmt"
	"time"
)

const MimeTypePDF = "application/pdf"

// RenderRequest carries everything the document template needs.
type RenderRequest struct {
	Quote           *Quote
	Insights        *AIInsights
	UserDescription string
}

type RenderedDocument struct {
	Filename    string    `json:"filename"`
	Bytes       []byte    `json:"-"`
	Size        int       `json:"size"`
	PageCount   int       `json:"pageCount,omitempty"`
	MimeType    string    `json:"mimeType"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// DocumentFilename is the canonical stored name of a quote's PDF.
func DocumentFilename(quote *Quote) string {
	return fmt.Sprintf("quote_%s_%s.pdf", quote.QuoteID, quote.Timestamp.UTC().Format(time.DateOnly))
}

type CompressionLevel string

const (
	CompressionLow    CompressionLevel = "LOW"
	CompressionMedium CompressionLevel = "MEDIUM"
	CompressionHigh   CompressionLevel = "HIGH"
)

func (l CompressionLevel) Valid() bool {
	switch l {
	case CompressionLow, CompressionMedium, CompressionHigh:
		return true
	default:
		return false
	}
}

type TaskStatus string

const (
	TaskUploaded    TaskStatus = "UPLOADED"
	TaskCompressing TaskStatus = "COMPRESSING"
	TaskPending     TaskStatus = "PENDING"
	TaskProcessing  TaskStatus = "PROCESSING"
	TaskInProgress  TaskStatus = "IN_PROGRESS"
	TaskCompleted   TaskStatus = "COMPLETED"
	TaskSuccess     TaskStatus = "SUCCESS"
	TaskFailed      TaskStatus = "FAILED"
	TaskErrored     TaskStatus = "ERROR"
	// TaskTimedOut is never reported by the remote service.
	TaskTimedOut TaskStatus = "TIMED_OUT"
)

func (s TaskStatus) Succeeded() bool {
	return s == TaskCompleted || s == TaskSuccess
}

func (s TaskStatus) Failed() bool {
	return s == TaskFailed || s == TaskErrored
}

type TaskError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// CompressionTask is the transient view of one remote compression task.
type CompressionTask struct {
	TaskID           string     `json:"taskId"`
	DocumentID       string     `json:"documentId,omitempty"`
	Status           TaskStatus `json:"status"`
	Progress         int        `json:"progress"`
	ResultDocumentID string     `json:"resultDocumentId,omitempty"`
	Error            *TaskError `json:"error,omitempty"`
}

// CompressionJob is the queued unit of background compression work. The
// document bytes stay in object storage under DocumentKey.
type CompressionJob struct {
	JobID           string      `json:"jobId"`
	Quote           *Quote      `json:"quote"`
	Insights        *AIInsights `json:"aiInsights,omitempty"`
	UserDescription string      `json:"userDescription,omitempty"`
	DocumentKey     string      `json:"documentKey"`
	Filename        string      `json:"filename"`
	EnqueuedAt      time.Time   `json:"enqueuedAt"`
}

type PipelineResult struct {
	Success          bool    `json:"success"`
	OriginalSize     int     `json:"originalSize"`
	CompressedSize   int     `json:"compressedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	StoredAt         string  `json:"storedAt"`
	TaskID           string  `json:"taskId,omitempty"`
	DocumentID       string  `json:"documentId,omitempty"`
	Fallback         bool    `json:"fallback"`
	Error            string  `json:"error,omitempty"`
}

const (
	CompressionStatusPending = "PENDING"
	CompressionStatusSkipped = "SKIPPED"
)

// DocumentInfo is the document section of a quote response.
type DocumentInfo struct {
	Filename          string `json:"filename"`
	Size              int    `json:"size"`
	PageCount         int    `json:"pageCount,omitempty"`
	StoredAt          string `json:"storedAt"`
	DownloadURL       string `json:"downloadUrl"`
	Buffer            []byte `json:"buffer"`
	CompressionStatus string `json:"compressionStatus"`
}

// QuoteOutcome is what the orchestrator hands back for a created quote.
type QuoteOutcome struct {
	Quote          *Quote
	Document       DocumentInfo
	Insights       *AIInsights
	ProcessingTime time.Duration
}

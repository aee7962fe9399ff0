package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 60 * time.Second
)

type CompressionOptions struct {
	Level        domain.CompressionLevel
	PollInterval time.Duration
	MaxWait      time.Duration
}

// PipelineInput is one document to compress.
type PipelineInput struct {
	Data     []byte
	Filename string
	Level    domain.CompressionLevel
}

// CompressedDocument is handed to the persist callback: either the compressed
// bytes or, on fallback, the original ones.
type CompressedDocument struct {
	Data           []byte
	OriginalSize   int
	CompressedSize int
	Ratio          float64
	Fallback       bool
}

type PersistFunc func(ctx context.Context, doc CompressedDocument) (*domain.StoredResult, error)

// CompressionPipeline runs upload, compress, poll and download against the
// remote API and always leaves a stored document behind.
type CompressionPipeline struct {
	api  ports.CompressionAPI
	opts CompressionOptions
	log  logging.Logger
}

func NewCompressionPipeline(api ports.CompressionAPI, opts CompressionOptions, log logging.Logger) *CompressionPipeline {
	if opts.Level == "" {
		opts.Level = domain.CompressionMedium
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &CompressionPipeline{
		api:  api,
		opts: opts,
		log:  log.With(logging.Fields{"component": "compression_pipeline"}),
	}
}

func (p *CompressionPipeline) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	return p.api.Upload(ctx, data, filename)
}

func (p *CompressionPipeline) StartCompression(ctx context.Context, documentID string, level domain.CompressionLevel) (string, error) {
	if level == "" {
		level = p.opts.Level
	}
	return p.api.StartCompression(ctx, documentID, level)
}

func (p *CompressionPipeline) PollStatus(ctx context.Context, taskID string) (*domain.CompressionTask, error) {
	return p.api.TaskStatus(ctx, taskID)
}

func (p *CompressionPipeline) Download(ctx context.Context, documentID, filename string) ([]byte, error) {
	return p.api.Download(ctx, documentID, filename)
}

// WaitForCompletion polls until the task reaches a terminal state or maxWait
// elapses. Errors from a single poll are logged and the loop keeps waiting.
// On timeout the returned task is TIMED_OUT with the last progress seen.
func (p *CompressionPipeline) WaitForCompletion(ctx context.Context, taskID string, maxWait, pollInterval time.Duration) (*domain.CompressionTask, error) {
	if maxWait <= 0 {
		maxWait = p.opts.MaxWait
	}
	if pollInterval <= 0 {
		pollInterval = p.opts.PollInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	limiter := rate.NewLimiter(rate.Every(pollInterval), 1)
	progress := 0

	for {
		if err := limiter.Wait(waitCtx); err != nil {
			break
		}

		task, err := p.PollStatus(waitCtx, taskID)
		if err != nil {
			p.log.Warn("compression_poll_failed", logging.Fields{"task_id": taskID, "error": err.Error()})
			continue
		}

		progress = task.Progress

		switch {
		case task.Status.Succeeded():
			return task, nil
		case task.Status.Failed():
			msg := "Unknown error"
			if task.Error != nil && task.Error.Message != "" {
				msg = task.Error.Message
			}
			return task, domain.WrapError(domain.ErrCompressionTaskFailed, "wait for compression", errors.New(msg))
		default:
			p.log.Debug("compression_task_pending", logging.Fields{
				"task_id":  taskID,
				"status":   string(task.Status),
				"progress": task.Progress,
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timedOut := &domain.CompressionTask{TaskID: taskID, Status: domain.TaskTimedOut, Progress: progress}
	return timedOut, domain.WrapError(domain.ErrCompressionTimeout, "wait for compression",
		fmt.Errorf("task %s did not complete within %s", taskID, maxWait))
}

// RunFullPipeline compresses in.Data and persists the result. Any failure,
// including a failed compressed persist, falls back to persisting the original
// bytes. Only a failed fallback persist is returned as an error.
func (p *CompressionPipeline) RunFullPipeline(ctx context.Context, in PipelineInput, persist PersistFunc) (*domain.PipelineResult, error) {
	originalSize := len(in.Data)

	result, err := p.compressAndPersist(ctx, in, persist)
	if err == nil {
		return result, nil
	}

	p.log.Warn("compression_fallback", logging.Fields{"filename": in.Filename, "error": err.Error()})
	stored, fallbackErr := persist(ctx, CompressedDocument{
		Data:           in.Data,
		OriginalSize:   originalSize,
		CompressedSize: originalSize,
		Ratio:          0,
		Fallback:       true,
	})
	if fallbackErr != nil {
		return nil, domain.WrapError(domain.ErrStorage, "persist fallback document",
			fmt.Errorf("both compression and fallback storage failed: %w", errors.Join(err, fallbackErr)))
	}

	return &domain.PipelineResult{
		Success:          true,
		OriginalSize:     originalSize,
		CompressedSize:   originalSize,
		CompressionRatio: 0,
		StoredAt:         storedPath(stored),
		Fallback:         true,
		Error:            err.Error(),
	}, nil
}

func (p *CompressionPipeline) compressAndPersist(ctx context.Context, in PipelineInput, persist PersistFunc) (*domain.PipelineResult, error) {
	if len(in.Data) == 0 {
		return nil, domain.WrapError(domain.ErrUpload, "compress document", errors.New("document is empty"))
	}

	documentID, err := p.Upload(ctx, in.Data, in.Filename)
	if err != nil {
		return nil, err
	}
	taskID, err := p.StartCompression(ctx, documentID, in.Level)
	if err != nil {
		return nil, err
	}
	task, err := p.WaitForCompletion(ctx, taskID, p.opts.MaxWait, p.opts.PollInterval)
	if err != nil {
		return nil, err
	}

	resultID := task.ResultDocumentID
	if resultID == "" {
		resultID = documentID
	}
	compressed, err := p.Download(ctx, resultID, in.Filename)
	if err != nil {
		return nil, err
	}

	ratio := CompressionRatio(len(in.Data), len(compressed))
	stored, err := persist(ctx, CompressedDocument{
		Data:           compressed,
		OriginalSize:   len(in.Data),
		CompressedSize: len(compressed),
		Ratio:          ratio,
	})
	if err != nil {
		return nil, fmt.Errorf("persist compressed document: %w", err)
	}

	return &domain.PipelineResult{
		Success:          true,
		OriginalSize:     len(in.Data),
		CompressedSize:   len(compressed),
		CompressionRatio: ratio,
		StoredAt:         storedPath(stored),
		TaskID:           taskID,
		DocumentID:       resultID,
	}, nil
}

// CompressionRatio is the saved share of the original size in percent, rounded to two decimals.
func CompressionRatio(original, compressed int) float64 {
	if original <= 0 {
		return 0
	}
	ratio := float64(original-compressed) / float64(original) * 100
	return math.Round(ratio*100) / 100
}

func storedPath(stored *domain.StoredResult) string {
	if stored == nil {
		return ""
	}
	return stored.PDFPath
}

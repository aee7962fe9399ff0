package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	JobOutcomeCompressed = "compressed"
	JobOutcomeFallback   = "fallback"
	JobOutcomeFailed     = "failed"
)

// CompressionWorker processes queued compression jobs.
type CompressionWorker struct {
	storage   ports.ObjectStorage
	pipeline  *CompressionPipeline
	persister QuotePersister
	observer  ports.PipelineObserver
	level     domain.CompressionLevel
	log       logging.Logger
	now       func() time.Time
}

func NewCompressionWorker(
	storage ports.ObjectStorage,
	pipeline *CompressionPipeline,
	persister QuotePersister,
	observer ports.PipelineObserver,
	level domain.CompressionLevel,
	log logging.Logger,
) *CompressionWorker {
	if log == nil {
		log = logging.NewNop()
	}
	return &CompressionWorker{
		storage:   storage,
		pipeline:  pipeline,
		persister: persister,
		observer:  observer,
		level:     level,
		log:       log.With(logging.Fields{"component": "compression_worker"}),
		now:       time.Now,
	}
}

func (w *CompressionWorker) ProcessJob(ctx context.Context, job domain.CompressionJob) error {
	finish := func(string) {}
	if w.observer != nil {
		finish = w.observer.StartJob()
		if !job.EnqueuedAt.IsZero() {
			w.observer.ObserveQueueLag(w.now().Sub(job.EnqueuedAt))
		}
	}
	log := w.log.With(logging.Fields{"job_id": job.JobID, "document_key": job.DocumentKey})

	if job.Quote == nil {
		finish(JobOutcomeFailed)
		return domain.WrapError(domain.ErrInvalidInput, "process compression job", errors.New("job has no quote"))
	}
	log = log.With(logging.Fields{"quote_id": job.Quote.QuoteID})

	original, err := w.readOriginal(ctx, job.DocumentKey)
	if err != nil {
		finish(JobOutcomeFailed)
		log.WithError(err).Error("compression_job_load_failed", nil)
		return err
	}

	filename := job.Filename
	if filename == "" {
		filename = domain.DocumentFilename(job.Quote)
	}

	result, err := w.pipeline.RunFullPipeline(ctx, PipelineInput{Data: original, Filename: filename, Level: w.level},
		func(ctx context.Context, doc CompressedDocument) (*domain.StoredResult, error) {
			stage := domain.StageCompressed
			if doc.Fallback {
				stage = domain.StageFallback
			}
			return w.persister.Persist(ctx, domain.PersistRequest{
				Quote:            job.Quote,
				Insights:         job.Insights,
				UserDescription:  job.UserDescription,
				Document:         doc.Data,
				OriginalSize:     doc.OriginalSize,
				CompressedSize:   doc.CompressedSize,
				CompressionRatio: doc.Ratio,
				Stage:            stage,
			})
		})
	if err != nil {
		finish(JobOutcomeFailed)
		log.WithError(err).Error("compression_job_failed", nil)
		return err
	}

	if result.Fallback {
		finish(JobOutcomeFallback)
		log.Warn("compression_job_fallback", logging.Fields{"reason": result.Error, "stored_at": result.StoredAt})
		return nil
	}

	finish(JobOutcomeCompressed)
	if w.observer != nil {
		w.observer.ObserveCompressionRatio(result.CompressionRatio)
	}
	log.Info("compression_job_completed", logging.Fields{
		"original_size":     result.OriginalSize,
		"compressed_size":   result.CompressedSize,
		"compression_ratio": result.CompressionRatio,
		"task_id":           result.TaskID,
		"stored_at":         result.StoredAt,
	})
	return nil
}

func (w *CompressionWorker) readOriginal(ctx context.Context, key string) ([]byte, error) {
	body, err := w.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open original document: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "read original document", err)
	}
	return data, nil
}

package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/resilience"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

const (
	DefaultSubject    = "quotes.compress"
	DefaultQueueGroup = "compressors"
)

type Queue struct {
	conn       *nats.Conn
	subject    string
	group      string
	workers    int
	jobTimeout time.Duration
	executor   *resilience.Executor
	log        logging.Logger
}

type Options struct {
	Subject              string
	QueueGroup           string
	Workers              int
	JobTimeout           time.Duration
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               logging.Logger
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	log := options.Logger
	if log == nil {
		log = logging.NewNop()
	}
	log = log.With(logging.Fields{"component": "nats_queue"})

	conn, err := nats.Connect(
		url,
		nats.Name("ai-quote-generator"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("nats_disconnected", nil)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats_reconnected", logging.Fields{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newQueue(conn, options, log), nil
}

func newQueue(conn *nats.Conn, options Options, log logging.Logger) *Queue {
	q := &Queue{
		conn:       conn,
		subject:    options.Subject,
		group:      options.QueueGroup,
		workers:    options.Workers,
		jobTimeout: options.JobTimeout,
		executor:   options.ResilienceExecutor,
		log:        log,
	}
	if q.subject == "" {
		q.subject = DefaultSubject
	}
	if q.group == "" {
		q.group = DefaultQueueGroup
	}
	if q.workers <= 0 {
		q.workers = 1
	}
	if q.jobTimeout <= 0 {
		q.jobTimeout = 5 * time.Minute
	}
	return q
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ping reports whether the connection to the server is currently up.
func (q *Queue) Ping(context.Context) error {
	if q.conn == nil || !q.conn.IsConnected() {
		return domain.WrapError(domain.ErrTemporary, "nats ping", errors.New("not connected"))
	}
	return nil
}

func (q *Queue) Enqueue(ctx context.Context, job domain.CompressionJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, resilience.OpPublishCompress, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// Subscribe joins the queue group with one subscription per worker and blocks
// until ctx is done, then drains every subscription.
func (q *Queue) Subscribe(ctx context.Context, handler func(context.Context, domain.CompressionJob) error) error {
	jobCtx := context.WithoutCancel(ctx)
	subs := make([]*nats.Subscription, 0, q.workers)
	for i := 0; i < q.workers; i++ {
		sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
			q.handle(jobCtx, msg, handler)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return fmt.Errorf("nats subscribe: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	var drainErr error
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			drainErr = errors.Join(drainErr, fmt.Errorf("nats drain subscription: %w", err))
		}
	}
	if drainErr != nil {
		return drainErr
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handle(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.CompressionJob) error) {
	job, err := decodeJob(msg.Data)
	if err != nil {
		q.log.WithError(err).Error("compression_job_decode_failed", logging.Fields{"subject": msg.Subject})
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()
	if err := handler(handlerCtx, job); err != nil {
		q.log.WithError(err).Error("compression_job_failed", logging.Fields{"job_id": job.JobID})
	}
}

func encodeJob(job domain.CompressionJob) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode compression job: %w", err)
	}
	return payload, nil
}

func decodeJob(data []byte) (domain.CompressionJob, error) {
	var job domain.CompressionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.CompressionJob{}, fmt.Errorf("decode compression job: %w", err)
	}
	if job.JobID == "" || job.DocumentKey == "" || job.Quote == nil {
		return domain.CompressionJob{}, fmt.Errorf("decode compression job: missing job id, document key or quote")
	}
	return job, nil
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rushabh-runwal/ai-quote-generator/internal/config"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/ports"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/pricing"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/usecase"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/catalog"
	csvledger "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger/csv"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger/xlsx"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/llm/completion"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/pdfservices"
	memqueue "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/queue/memory"
	natsqueue "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/queue/nats"
	memregistry "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/registry/memory"
	redisregistry "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/registry/redis"
	ddbindex "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/repository/dynamodb"
	pgindex "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/repository/postgres"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/resilience"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/storage/localfs"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/metrics"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/telemetry"
)

// App holds every wired component of one process.
type App struct {
	Config *config.Config
	Logger logging.Logger

	Catalog    *catalog.Catalog
	Calculator *pricing.Calculator
	Storage    *localfs.Storage
	Recorder   *usecase.Recorder
	Exporter   *xlsx.Exporter
	Queue      ports.CompressionQueue

	QuoteService *usecase.QuoteService
	Worker       *usecase.CompressionWorker

	HTTPMetrics     *metrics.HTTPServerMetrics
	PipelineMetrics *metrics.PipelineMetrics

	closers []func() error
}

// New wires the application from configuration. Backends that need a network
// connection (redis, nats, postgres, dynamodb) are dialled here.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (app *App, err error) {
	if log == nil {
		log = logging.NewNop()
	}
	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.Catalog, err = catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	app.Calculator = pricing.NewCalculator(app.Catalog)

	app.Storage, err = localfs.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	ledger, err := csvledger.New(ledgerPath(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	app.Exporter = xlsx.NewExporter()

	app.HTTPMetrics = metrics.NewHTTPServerMetrics(cfg.App.Name)
	app.PipelineMetrics = metrics.NewPipelineMetrics(cfg.App.Name, app.HTTPMetrics.Registry())
	quoteTelemetry, err := telemetry.New(cfg.App.Name, app.HTTPMetrics.Registry())
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	app.closers = append(app.closers, quoteTelemetry.Shutdown)

	executor := resilience.NewExecutor(resilienceConfig(cfg.Resilience), log)
	checks := map[string]usecase.HealthCheck{
		"storage": func(ctx context.Context) error {
			_, err := app.Storage.List(ctx, "")
			return err
		},
		"circuits": func(context.Context) error {
			if open := executor.OpenCircuits(); len(open) > 0 {
				return fmt.Errorf("circuit breakers not closed: %s", strings.Join(open, ", "))
			}
			return nil
		},
	}

	registry, err := app.buildRegistry(cfg.Registry, checks)
	if err != nil {
		return nil, err
	}
	index, err := app.buildIndex(ctx, cfg.Index, checks)
	if err != nil {
		return nil, err
	}
	app.Queue, err = app.buildQueue(cfg.Queue, executor, checks)
	if err != nil {
		return nil, err
	}

	app.Recorder = usecase.NewRecorder(app.Storage, ledger, index, log)

	pdfClient := pdfservices.New(pdfservices.Options{
		BaseURL:      cfg.PDFServices.BaseURL,
		ClientID:     cfg.PDFServices.ClientID,
		ClientSecret: cfg.PDFServices.ClientSecret,
		Timeouts: pdfservices.Timeouts{
			Render:   cfg.PDFServices.RenderTimeout,
			Upload:   cfg.PDFServices.UploadTimeout,
			Compress: cfg.PDFServices.CompressTimeout,
			Status:   cfg.PDFServices.StatusTimeout,
			Download: cfg.PDFServices.DownloadTimeout,
		},
	}, executor, log)
	template, err := pdfservices.LoadTemplate(cfg.PDFServices.TemplatePath)
	if err != nil {
		log.Warn("document_template_unavailable", logging.Fields{"path": cfg.PDFServices.TemplatePath, "error": err.Error()})
	}
	renderer := pdfservices.NewRenderer(pdfClient, template)
	checks["pdfServices"] = func(context.Context) error {
		switch {
		case !pdfClient.Configured():
			return errors.New("client credentials are not configured")
		case !renderer.TemplateLoaded():
			return errors.New("document template is not loaded")
		}
		return nil
	}

	aiClient := completion.New(completion.Options{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, executor)
	recommender := completion.NewRecommender(aiClient, app.Catalog)

	app.QuoteService = usecase.NewQuoteService(usecase.QuoteServiceDeps{
		ServiceName: cfg.App.Name,
		Calculator:  app.Calculator,
		Catalog:     app.Catalog,
		BaseTaxRate: app.Catalog.BaseTaxRate(),
		Registry:    registry,
		Recommender: recommender,
		Renderer:    renderer,
		Persister:   app.Recorder,
		Queue:       app.Queue,
		Observers:   []ports.QuoteObserver{app.HTTPMetrics, quoteTelemetry},
		Checks:      checks,
		Logger:      log,
	})

	pipeline := usecase.NewCompressionPipeline(pdfservices.NewCompressor(pdfClient), usecase.CompressionOptions{
		Level:        domain.CompressionLevel(cfg.PDFServices.CompressionLevel),
		PollInterval: cfg.PDFServices.PollInterval,
		MaxWait:      cfg.PDFServices.MaxWait,
	}, log)
	app.Worker = usecase.NewCompressionWorker(
		app.Storage,
		pipeline,
		app.Recorder,
		app.PipelineMetrics,
		domain.CompressionLevel(cfg.PDFServices.CompressionLevel),
		log,
	)

	log.Info("application_wired", logging.Fields{
		"registry": cfg.Registry.Backend,
		"queue":    cfg.Queue.Backend,
		"index":    cfg.Index.Backend,
		"storage":  cfg.Storage.Path,
	})
	return app, nil
}

func (a *App) buildRegistry(cfg config.RegistryConfig, checks map[string]usecase.HealthCheck) (ports.QuoteRegistry, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		reg, err := redisregistry.New(redisregistry.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
			TTL:       cfg.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis registry: %w", err)
		}
		a.closers = append(a.closers, reg.Close)
		checks["redis"] = reg.Ping
		return reg, nil
	default:
		return memregistry.New(), nil
	}
}

func (a *App) buildIndex(ctx context.Context, cfg config.IndexConfig, checks map[string]usecase.HealthCheck) (ports.RecordIndex, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := pgindex.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		idx := pgindex.NewRecordIndex(db)
		if err := idx.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure record index schema: %w", err)
		}
		checks["index"] = db.PingContext
		return idx, nil
	case config.BackendDynamoDB:
		client, err := ddbindex.NewClient(ctx, ddbindex.ClientOptions{
			Region:          cfg.DynamoDB.Region,
			Endpoint:        cfg.DynamoDB.Endpoint,
			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init dynamodb client: %w", err)
		}
		return ddbindex.NewRecordIndex(client, cfg.DynamoDB.Table), nil
	default:
		return nil, nil
	}
}

func (a *App) buildQueue(cfg config.QueueConfig, executor *resilience.Executor, checks map[string]usecase.HealthCheck) (ports.CompressionQueue, error) {
	switch cfg.Backend {
	case config.BackendNATS:
		q, err := natsqueue.New(cfg.NATSURL, natsqueue.Options{
			Subject:            cfg.NATSSubject,
			QueueGroup:         cfg.NATSQueueGroup,
			Workers:            cfg.Workers,
			JobTimeout:         cfg.JobTimeout,
			ResilienceExecutor: executor,
			Logger:             a.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init nats queue: %w", err)
		}
		a.closers = append(a.closers, func() error {
			q.Close()
			return nil
		})
		checks["queue"] = q.Ping
		return q, nil
	default:
		return memqueue.New(memqueue.Options{
			Workers:      cfg.Workers,
			Buffer:       cfg.Buffer,
			JobTimeout:   cfg.JobTimeout,
			DrainTimeout: cfg.DrainTimeout,
		}, a.Logger), nil
	}
}

// InProcessQueue reports whether compression jobs are consumed by this process.
func (a *App) InProcessQueue() bool {
	_, ok := a.Queue.(*memqueue.Queue)
	return ok
}

// RunWorkers consumes compression jobs until ctx is cancelled, then drains.
func (a *App) RunWorkers(ctx context.Context) error {
	return a.Queue.Subscribe(ctx, a.Worker.ProcessJob)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close_failed", logging.Fields{"error": err.Error()})
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
}

func ledgerPath(cfg config.StorageConfig) string {
	if filepath.IsAbs(cfg.LedgerFile) {
		return cfg.LedgerFile
	}
	return filepath.Join(cfg.Path, cfg.LedgerFile)
}

func resilienceConfig(cfg config.ResilienceConfig) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.RetryInitialBackoff = cfg.RetryInitialBackoff
	out.RetryMaxBackoff = cfg.RetryMaxBackoff
	out.BreakerEnabled = cfg.BreakerEnabled
	out.BreakerMinRequests = cfg.BreakerMinRequests
	out.BreakerFailureRatio = cfg.BreakerFailureRatio
	out.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	return out
}

package di

import (
	"context"
	"fmt"
	"os"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/services"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/cache"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/concurrency"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/config"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/fetch"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/ffmpeg"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/messaging/eventbridge"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/messaging/logbus"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/observability"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/persistence/dynamodb"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/persistence/memory"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/storage"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/interfaces/http/rest"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/interfaces/http/rest/handlers"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/interfaces/http/rest/middleware"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/auth"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Environment, cfg.LogLevel)
}

// ProvideAWSConfig creates AWS configuration. Credentials are resolved lazily,
// so this succeeds on hosts that use neither DynamoDB nor EventBridge.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideJobRepository uses DynamoDB when JOBS_TABLE is set and memory otherwise.
func ProvideJobRepository(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) ports.JobRepository {
	if cfg.JobsTable == "" {
		return memory.NewJobRepository(cfg.ArtifactTTL)
	}
	logger.Info("Using DynamoDB job repository", zap.String("table", cfg.JobsTable))
	return dynamodb.NewJobRepository(awsdynamodb.NewFromConfig(awsCfg), cfg.JobsTable, cfg.ArtifactTTL, logger)
}

// ProvideEventBus publishes to EventBridge when EVENT_BUS_NAME is set and to
// the log otherwise.
func ProvideEventBus(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	if cfg.EventBusName == "" {
		return logbus.New(logger)
	}
	logger.Info("Using EventBridge event bus", zap.String("bus", cfg.EventBusName))
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
}

// ProvideCollector returns the process-wide metrics collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("timestretch")
}

// ProvideTracerProvider installs OTLP tracing when enabled; nil otherwise.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: observability.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
}

func ProvideLimitsStore(cfg *config.Config) *config.LimitsStore {
	return config.NewLimitsStore(cfg.Limits)
}

func ProvideJobSlots(cfg *config.Config) *concurrency.Slots {
	return concurrency.NewSlots(cfg.MaxConcurrentJobs)
}

func ProvideMediaTool(cfg *config.Config, logger *zap.Logger) *ffmpeg.Tool {
	return ffmpeg.NewTool(ffmpeg.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
	}, nil, logger)
}

func ProvideFetcher(cfg *config.Config, logger *zap.Logger) *fetch.Fetcher {
	fetchCfg := fetch.DefaultConfig()
	fetchCfg.Timeout = cfg.DownloadTimeout
	fetchCfg.MaxBytes = cfg.MaxDownloadBytes
	fetchCfg.AllowFileURLs = cfg.AllowFileURLs
	return fetch.NewFetcher(fetchCfg, logger)
}

func ProvideArtifactStore(cfg *config.Config, logger *zap.Logger) (*storage.LocalStore, error) {
	return storage.NewLocalStore(cfg.StoreDir, logger)
}

// ProvideJanitor creates the retention janitor; the container starts it.
func ProvideJanitor(store *storage.LocalStore, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *storage.Janitor {
	janitor := storage.NewJanitor(store, cfg.ArtifactTTL, cfg.JanitorInterval, logger)
	janitor.OnSweep(collector.RecordSweep)
	return janitor
}

func ProvideCache(logger *zap.Logger) *cache.MemoryCache {
	return cache.NewMemoryCache(0, 0, logger)
}

// ProvideProcessor wires the pipeline
func ProvideProcessor(
	cfg *config.Config,
	fetcher *fetch.Fetcher,
	media *ffmpeg.Tool,
	store *storage.LocalStore,
	jobs ports.JobRepository,
	bus ports.EventBus,
	slots *concurrency.Slots,
	limits *config.LimitsStore,
	collector *observability.Collector,
	logger *zap.Logger,
) (*services.Processor, error) {
	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create work dir: %w", err)
		}
	}
	return services.NewProcessor(services.ProcessorDeps{
		Fetcher: fetcher,
		Media:   media,
		Store:   store,
		Jobs:    jobs,
		Events:  bus,
		Slots:   slots,
		Limits:  limits,
		Metrics: collector,
		Logger:  logger,
	}, cfg.WorkDir), nil
}

func ProvideRateLimiter(cfg *config.Config) *auth.TokenBucketLimiter {
	return auth.NewTokenBucketLimiter(cfg.RateLimitPerMinute)
}

// ProvideTokenValidator returns nil when JWT_SECRET is unset, which leaves the
// API open.
func ProvideTokenValidator(cfg *config.Config) (middleware.TokenValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	validator, err := auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT validator: %w", err)
	}
	return validator, nil
}

// ProvideConfigWatcher watches CONFIG_FILE and pushes reloaded limits and
// rate into the running components.
func ProvideConfigWatcher(
	cfg *config.Config,
	limits *config.LimitsStore,
	limiter *auth.TokenBucketLimiter,
	logger *zap.Logger,
) (*config.ConfigWatcher, error) {
	watcher, err := config.NewConfigWatcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(next *config.Config) {
		limits.Set(next.Limits)
		limiter.SetLimit(next.RateLimitPerMinute)
	})
	return watcher, nil
}

func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

func ProvideAudioHandler(
	cfg *config.Config,
	processor *services.Processor,
	store *storage.LocalStore,
	memCache *cache.MemoryCache,
	collector *observability.Collector,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.AudioHandler {
	return handlers.NewAudioHandler(processor, store, memCache, cfg.IdempotencyTTL, collector, errorHandler, logger)
}

// ProvideHealthHandler registers the readiness checks
func ProvideHealthHandler(media *ffmpeg.Tool, store *storage.LocalStore, logger *zap.Logger) *handlers.HealthHandler {
	checks := []handlers.ReadinessCheck{
		{Name: "ffmpeg", Check: func(context.Context) error { return media.CheckAvailable() }},
		{Name: "store", Check: store.CheckWritable},
	}
	return handlers.NewHealthHandler(observability.ServiceName, checks, logger)
}

func ProvideRouter(
	cfg *config.Config,
	audio *handlers.AudioHandler,
	health *handlers.HealthHandler,
	validator middleware.TokenValidator,
	limiter *auth.TokenBucketLimiter,
	collector *observability.Collector,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(audio, health, validator, limiter, collector, errorHandler, logger, rest.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		EnableCORS:     cfg.EnableCORS,
		EnableMetrics:  cfg.EnableMetrics,
		EnableTracing:  cfg.EnableTracing,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
}

//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideJobRepository,
	ProvideEventBus,
	ProvideCollector,
	ProvideTracerProvider,
	ProvideLimitsStore,
	ProvideJobSlots,
	ProvideMediaTool,
	ProvideFetcher,
	ProvideArtifactStore,
	ProvideJanitor,
	ProvideCache,
	ProvideProcessor,
	ProvideRateLimiter,
	ProvideTokenValidator,
	ProvideConfigWatcher,
	ProvideErrorHandler,
	ProvideAudioHandler,
	ProvideHealthHandler,
	ProvideRouter,
	wire.Struct(new(Container), "Config", "Logger", "Processor", "Media", "Store", "Janitor",
		"Cache", "RateLimiter", "Watcher", "Collector", "Tracer", "Router"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}

// Package di assembles the application with google/wire.
package di

import (
	"context"
	"net/http"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/services"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/cache"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/config"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/ffmpeg"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/observability"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/storage"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/interfaces/http/rest"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/auth"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Processor   *services.Processor
	Media       *ffmpeg.Tool
	Store       *storage.LocalStore
	Janitor     *storage.Janitor
	Cache       *cache.MemoryCache
	RateLimiter *auth.TokenBucketLimiter
	Watcher     *config.ConfigWatcher
	Collector   *observability.Collector
	Tracer      *observability.TracerProvider
	Router      *rest.Router

	cancel context.CancelFunc
}

// Start launches the background workers: artifact janitor, cache and
// rate-limiter cleanup.
func (c *Container) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.Janitor.Start()
	c.Cache.StartCleanup(ctx, time.Minute)
	c.RateLimiter.StartCleanup(ctx, 10*time.Minute)

	if err := c.Media.CheckAvailable(); err != nil {
		c.Logger.Warn("Media tools unavailable; /ready will fail", zap.Error(err))
	}
}

// Handler builds the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.Router.Setup()
}

// Shutdown stops background workers and flushes telemetry.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.Janitor.Stop()
	c.Watcher.Stop()

	var result *multierror.Error
	if err := c.Tracer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	// stderr sync fails on some platforms; nothing to do about it
	_ = c.Logger.Sync()
	return result.ErrorOrNil()
}

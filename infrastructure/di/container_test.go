package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/config"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/messaging/logbus"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/observability"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/persistence/memory"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.StoreDir = filepath.Join(t.TempDir(), "out")
	cfg.WorkDir = filepath.Join(t.TempDir(), "work")
	cfg.Environment = config.Development
	cfg.LogLevel = "error"
	cfg.EnableMetrics = true
	return cfg
}

func TestInitializeContainer(t *testing.T) {
	observability.ResetForTesting()
	t.Cleanup(observability.ResetForTesting)
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	ctx := context.Background()
	container, err := InitializeContainer(ctx, testConfig(t))
	require.NoError(t, err)

	container.Start(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		assert.NoError(t, container.Shutdown(shutdownCtx))
	}()

	handler := container.Handler()
	for _, path := range []string{"/health", "/metrics", "/swagger/doc.json"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	_, err = os.Stat(container.Config.WorkDir)
	assert.NoError(t, err)
}

func TestProviders_LocalFallbacks(t *testing.T) {
	cfg := testConfig(t)
	logger := zap.NewNop()

	assert.IsType(t, &memory.JobRepository{}, ProvideJobRepository(aws.Config{}, cfg, logger))
	assert.IsType(t, &logbus.Bus{}, ProvideEventBus(aws.Config{}, cfg, logger))

	validator, err := ProvideTokenValidator(cfg)
	require.NoError(t, err)
	assert.Nil(t, validator)

	cfg.JWTSecret = "secret"
	validator, err = ProvideTokenValidator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, validator)

	tp, err := ProvideTracerProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestProvideConfigWatcher_PushesReloadedLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit_per_minute: 30\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	limits := ProvideLimitsStore(cfg)
	limiter := ProvideRateLimiter(cfg)
	watcher, err := ProvideConfigWatcher(cfg, limits, limiter, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	updated := "rate_limit_per_minute: 1\nlimits:\n  min_stretch_factor: 0.5\n  max_stretch_factor: 2.0\n  max_target_duration_ms: 600000\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		return limits.Limits().MaxTargetDurationMs == 600000
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0.5, limits.Limits().MinStretchFactor)

	ctx := context.Background()
	ok, _ := limiter.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = limiter.Allow(ctx, "k")
	assert.False(t, ok)
}

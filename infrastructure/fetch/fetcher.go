// Package fetch downloads source audio for the pipeline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"

	"github.com/cenkalti/backoff"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedScheme is returned for URLs other than http, https and (when enabled) file.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrTooLarge is returned when the source exceeds the configured size cap.
	ErrTooLarge = errors.New("source exceeds maximum size")
)

// StatusError is returned for a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode, e.Status)
}

// temporary reports whether retrying the request might succeed.
func (e *StatusError) temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Config configures a Fetcher.
type Config struct {
	Timeout       time.Duration
	MaxBytes      int64
	MaxElapsed    time.Duration
	AllowFileURLs bool
	UserAgent     string
}

// DefaultConfig returns a one minute timeout and a 200 MiB cap.
func DefaultConfig() Config {
	return Config{
		Timeout:    60 * time.Second,
		MaxBytes:   200 << 20,
		MaxElapsed: 30 * time.Second,
		UserAgent:  "timestretch/1.0",
	}
}

// maxBreakers bounds the per-host breaker table; closed breakers are dropped
// when it fills up.
const maxBreakers = 1024

// Fetcher implements ports.SourceFetcher over HTTP(S) and local files.
type Fetcher struct {
	client *http.Client
	config Config
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

var _ ports.SourceFetcher = (*Fetcher)(nil)

// NewFetcher creates a Fetcher with a pooled client. Each source host gets its
// own circuit breaker so a dead host only short-circuits requests to itself.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = cfg.Timeout

	return &Fetcher{
		client:   client,
		config:   cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breakerFor returns the circuit breaker guarding downloads from host.
func (f *Fetcher) breakerFor(host string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	if len(f.breakers) >= maxBreakers {
		for h, cb := range f.breakers {
			if cb.State() == gobreaker.StateClosed {
				delete(f.breakers, h)
			}
		}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "source-download:" + host,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			f.logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A 404 or an oversized file says nothing about upstream health.
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.temporary() {
				return true
			}
			return errors.Is(err, ErrTooLarge) || errors.Is(err, context.Canceled)
		},
	})
	f.breakers[host] = cb
	return cb
}

// Fetch implements ports.SourceFetcher
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u.Host, u.String(), dest)
	case "file":
		if !f.config.AllowFileURLs {
			return 0, fmt.Errorf("%w: file", ErrUnsupportedScheme)
		}
		return f.copyLocal(u.Path, dest)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, host, rawURL, dest string) (int64, error) {
	var written int64
	breaker := f.breakerFor(host)

	operation := func() error {
		result, err := breaker.Execute(func() (interface{}, error) {
			return f.download(ctx, rawURL, dest)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.temporary() {
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrTooLarge) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			f.logger.Debug("Source download attempt failed", zap.String("url", rawURL), zap.Error(err))
			return err
		}
		written = result.(int64)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(f.retryPolicy(), ctx)); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return 0, permanent.Err
		}
		return 0, err
	}
	return written, nil
}

func (f *Fetcher) retryPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = f.config.MaxElapsed
	return policy
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	if f.config.MaxBytes > 0 && resp.ContentLength > f.config.MaxBytes {
		return 0, ErrTooLarge
	}

	return f.writeLimited(resp.Body, dest)
}

func (f *Fetcher) copyLocal(path, dest string) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	return f.writeLimited(src, dest)
}

func (f *Fetcher) writeLimited(r io.Reader, dest string) (int64, error) {
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	reader := r
	if f.config.MaxBytes > 0 {
		reader = io.LimitReader(r, f.config.MaxBytes+1)
	}

	n, err := io.Copy(out, reader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	if f.config.MaxBytes > 0 && n > f.config.MaxBytes {
		return 0, ErrTooLarge
	}
	return n, nil
}

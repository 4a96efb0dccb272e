package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"

	"go.uber.org/zap"
)

// Janitor periodically sweeps expired artifacts out of a store.
type Janitor struct {
	store    ports.ArtifactStore
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	onSweep  func(removed int)

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewJanitor creates a janitor; Start must be called to run it.
func NewJanitor(store ports.ArtifactStore, ttl, interval time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// OnSweep registers fn to receive the number of artifacts each sweep removed.
// It must be called before Start.
func (j *Janitor) OnSweep(fn func(removed int)) {
	j.onSweep = fn
}

// Start runs a sweep immediately and then every interval until Stop.
func (j *Janitor) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	go j.loop()
	j.logger.Info("Artifact janitor started",
		zap.Duration("ttl", j.ttl),
		zap.Duration("interval", j.interval),
	)
}

// Stop halts the janitor and waits for an in-flight sweep.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
		if j.started.Load() {
			<-j.doneCh
		}
		j.logger.Info("Artifact janitor stopped")
	})
}

func (j *Janitor) loop() {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()
	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	removed, err := j.store.Sweep(ctx, j.ttl)
	if err != nil {
		j.logger.Warn("Artifact sweep failed", zap.Error(err))
	}
	if removed > 0 && j.onSweep != nil {
		j.onSweep(removed)
	}
}

// Package logbus is the event bus used when no EventBridge bus is configured:
// events are written to the log and fanned out to in-process subscribers.
package logbus

import (
	"context"
	"sync"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/events"

	"go.uber.org/zap"
)

// Handler receives published events.
type Handler func(ctx context.Context, event events.DomainEvent)

// Bus implements ports.EventBus
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

var _ ports.EventBus = (*Bus)(nil)

// New creates a log-backed bus
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type; "*" receives everything.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish implements ports.EventBus
func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.logger.Info("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
	)

	b.mu.RLock()
	handlers := append(append([]Handler(nil), b.handlers[event.GetEventType()]...), b.handlers["*"]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, event)
	}
	return nil
}

// PublishBatch implements ports.EventBus
func (b *Bus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

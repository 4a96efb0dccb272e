package logbus

import (
	"context"
	"testing"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DispatchesByType(t *testing.T) {
	bus := New(nil)
	var typed, wildcard []string

	bus.Subscribe(events.TypeAudioFailed, func(ctx context.Context, e events.DomainEvent) {
		typed = append(typed, e.GetEventType())
	})
	bus.Subscribe("*", func(ctx context.Context, e events.DomainEvent) {
		wildcard = append(wildcard, e.GetEventType())
	})

	job := audio.NewJob(audio.NewJobID(), audio.ProcessRequest{}, time.Now())
	_ = job.Fail("boom", time.Now())

	err := bus.PublishBatch(context.Background(), []events.DomainEvent{
		events.NewAudioFailed(job, time.Now()),
		events.NewAudioProcessed(job, time.Now()),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{events.TypeAudioFailed}, typed)
	assert.Equal(t, []string{events.TypeAudioFailed, events.TypeAudioProcessed}, wildcard)
}

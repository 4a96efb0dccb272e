package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAudioProcessed(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	id := audio.NewJobID()
	job := audio.NewJob(id, audio.ProcessRequest{TargetDurationMs: 11000, FormatOut: audio.FormatWAV}, now)
	require.NoError(t, job.Complete(audio.ProcessResult{JobID: id, FinalDurationMs: 11000, Factor: 1.1}, "chronique_x_11000.wav", now))

	event := NewAudioProcessed(job, now)

	assert.Equal(t, TypeAudioProcessed, event.GetEventType())
	assert.Equal(t, id.String(), event.GetAggregateID())
	assert.Equal(t, now, event.GetTimestamp())
	assert.Equal(t, 1, event.GetVersion())
	assert.Equal(t, "chronique_x_11000.wav", event.ArtifactName)
	assert.Equal(t, audio.FormatWAV, event.Format)
	assert.Equal(t, 11000, event.FinalMs)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"event_type":"audio.processed"`)
	assert.Contains(t, string(raw), `"job_id":"`+id.String()+`"`)
}

func TestNewAudioFailed(t *testing.T) {
	now := time.Now()
	job := audio.NewJob(audio.NewJobID(), audio.ProcessRequest{TargetDurationMs: 1000}, now)
	require.NoError(t, job.Fail("media processing failed", now))

	event := NewAudioFailed(job, now)

	assert.Equal(t, TypeAudioFailed, event.GetEventType())
	assert.Equal(t, "media processing failed", event.Reason)
}

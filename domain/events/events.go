package events

import (
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
)

const (
	// Source is the EventBridge source of every event this service emits.
	Source = "timestretch.api"

	TypeAudioProcessed = "audio.processed"
	TypeAudioFailed    = "audio.failed"
)

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// AudioProcessed is raised when an artifact has been produced
type AudioProcessed struct {
	BaseEvent
	JobID        audio.JobID  `json:"job_id"`
	ArtifactName string       `json:"artifact_name"`
	Format       audio.Format `json:"format"`
	TargetMs     int          `json:"target_ms"`
	FinalMs      int          `json:"final_ms"`
	Factor       float64      `json:"factor"`
}

// NewAudioProcessed creates an AudioProcessed event
func NewAudioProcessed(job *audio.Job, timestamp time.Time) AudioProcessed {
	evt := AudioProcessed{
		BaseEvent: BaseEvent{
			AggregateID: job.ID.String(),
			EventType:   TypeAudioProcessed,
			Timestamp:   timestamp,
			Version:     1,
		},
		JobID:        job.ID,
		ArtifactName: job.ArtifactName,
		Format:       job.Request.FormatOut,
		TargetMs:     job.Request.TargetDurationMs,
	}
	if job.Result != nil {
		evt.FinalMs = job.Result.FinalDurationMs
		evt.Factor = job.Result.Factor
	}
	return evt
}

// AudioFailed is raised when a job could not produce an artifact
type AudioFailed struct {
	BaseEvent
	JobID  audio.JobID `json:"job_id"`
	Reason string      `json:"reason"`
}

// NewAudioFailed creates an AudioFailed event
func NewAudioFailed(job *audio.Job, timestamp time.Time) AudioFailed {
	return AudioFailed{
		BaseEvent: BaseEvent{
			AggregateID: job.ID.String(),
			EventType:   TypeAudioFailed,
			Timestamp:   timestamp,
			Version:     1,
		},
		JobID:  job.ID,
		Reason: job.Error,
	}
}

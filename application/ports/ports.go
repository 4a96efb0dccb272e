// Package ports defines the interfaces the application layer depends on.
// Infrastructure adapters implement them; tests mock them.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/events"
)

// TranscodeSpec describes one ffmpeg invocation reading Input and writing Output.
// An empty Output means the result is discarded (analysis passes).
type TranscodeSpec struct {
	Input  string
	Output string
	Filter string
	// Args are appended after the filter, before the output.
	Args []string
}

// MediaTool runs the external audio tools.
type MediaTool interface {
	Transcode(ctx context.Context, spec TranscodeSpec) error
	AnalyzeLoudness(ctx context.Context, input string, target audio.LoudnessTarget) (audio.LoudnessStats, error)
	ProbeDurationMs(ctx context.Context, path string) (int, error)
}

// SourceFetcher downloads a source file to a local path.
type SourceFetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) (int64, error)
}

// ArtifactInfo describes a stored artifact.
type ArtifactInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Artifact is an open stored file.
type Artifact interface {
	io.ReadSeekCloser
}

// ArtifactStore keeps produced files until they are downloaded or expire.
type ArtifactStore interface {
	Put(ctx context.Context, name, srcPath string) error
	Open(ctx context.Context, name string) (Artifact, ArtifactInfo, error)
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
	CheckWritable(ctx context.Context) error
}

// JobRepository persists job records.
type JobRepository interface {
	Save(ctx context.Context, job *audio.Job) error
	Get(ctx context.Context, id audio.JobID) (*audio.Job, error)
}

// EventBus publishes domain events.
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache is a byte cache with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// JobSlots bounds how many pipelines run at once.
type JobSlots interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// LimitsProvider returns the currently effective request limits.
type LimitsProvider interface {
	Limits() audio.Limits
}

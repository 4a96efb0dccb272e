// Package memory provides in-process repository implementations.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"
)

// JobRepository keeps job records in a map, evicting records older than ttl on write.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]jobEntry
	ttl  time.Duration
	now  func() time.Time
}

type jobEntry struct {
	data    []byte
	savedAt time.Time
}

var _ ports.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates an empty repository. A zero ttl keeps records forever.
func NewJobRepository(ttl time.Duration) *JobRepository {
	return &JobRepository{
		jobs: make(map[string]jobEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Save stores a snapshot of the job; later mutations of the caller's copy are not visible.
func (r *JobRepository) Save(ctx context.Context, job *audio.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return apperrors.NewInternal("failed to serialize job", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.jobs[job.ID.String()] = jobEntry{data: data, savedAt: now}
	r.evictLocked(now)
	return nil
}

// Get returns a copy of the stored job.
func (r *JobRepository) Get(ctx context.Context, id audio.JobID) (*audio.Job, error) {
	r.mu.RLock()
	entry, ok := r.jobs[id.String()]
	r.mu.RUnlock()

	if !ok || r.expired(entry, r.now()) {
		return nil, apperrors.NewNotFound("Job not found")
	}

	var job audio.Job
	if err := json.Unmarshal(entry.data, &job); err != nil {
		return nil, apperrors.NewInternal("failed to deserialize job", err)
	}
	return &job, nil
}

func (r *JobRepository) expired(entry jobEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(entry.savedAt) > r.ttl
}

func (r *JobRepository) evictLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, entry := range r.jobs {
		if r.expired(entry, now) {
			delete(r.jobs, id)
		}
	}
}

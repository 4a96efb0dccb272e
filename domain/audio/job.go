package audio

import (
	"errors"
	"time"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ErrJobFinished is returned when a finished job is asked to change state again.
var ErrJobFinished = errors.New("job already finished")

// Job records one request and its outcome.
type Job struct {
	ID           JobID          `json:"id"`
	Status       JobStatus      `json:"status"`
	Request      ProcessRequest `json:"request"`
	Result       *ProcessResult `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	ArtifactName string         `json:"artifact_name,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewJob starts a job in the processing state.
func NewJob(id JobID, req ProcessRequest, now time.Time) *Job {
	return &Job{
		ID:        id,
		Status:    JobProcessing,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Complete moves the job to completed with its result.
func (j *Job) Complete(result ProcessResult, artifact string, now time.Time) error {
	if j.Status != JobProcessing {
		return ErrJobFinished
	}
	j.Status = JobCompleted
	j.Result = &result
	j.ArtifactName = artifact
	j.UpdatedAt = now
	return nil
}

// Fail moves the job to failed with a message.
func (j *Job) Fail(message string, now time.Time) error {
	if j.Status != JobProcessing {
		return ErrJobFinished
	}
	j.Status = JobFailed
	j.Error = message
	j.UpdatedAt = now
	return nil
}

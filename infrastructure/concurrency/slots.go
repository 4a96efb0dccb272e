// Package concurrency bounds how many ffmpeg pipelines run at once.
//
// Each pipeline is CPU-bound, so the default slot count follows the CPUs
// available to the process. On Lambda the CPU share follows configured
// memory, so the count is derived from that instead.
package concurrency

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"
)

// RuntimeEnvironment represents the deployment environment
type RuntimeEnvironment string

const (
	EnvironmentLambda RuntimeEnvironment = "lambda"
	EnvironmentECS    RuntimeEnvironment = "ecs"
	EnvironmentLocal  RuntimeEnvironment = "local"
)

// DetectEnvironment inspects well-known variables set by the AWS runtimes.
func DetectEnvironment() RuntimeEnvironment {
	if _, ok := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); ok {
		return EnvironmentLambda
	}
	if _, ok := os.LookupEnv("ECS_CONTAINER_METADATA_URI"); ok {
		return EnvironmentECS
	}
	if _, ok := os.LookupEnv("ECS_CONTAINER_METADATA_URI_V4"); ok {
		return EnvironmentECS
	}
	return EnvironmentLocal
}

// GetLambdaMemoryMB returns the configured memory for the Lambda function
func GetLambdaMemoryMB() int {
	mem, err := strconv.Atoi(os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))
	if err != nil || mem <= 0 {
		return 512
	}
	return mem
}

// DefaultSlotCount returns the number of concurrent pipelines for env.
func DefaultSlotCount(env RuntimeEnvironment) int {
	if env == EnvironmentLambda {
		// one vCPU per ~1769 MB
		switch mem := GetLambdaMemoryMB(); {
		case mem < 1769:
			return 1
		case mem < 3538:
			return 2
		default:
			return mem / 1769
		}
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// Slots is a counting semaphore implementing ports.JobSlots.
type Slots struct {
	sem    chan struct{}
	active atomic.Int64
}

var _ ports.JobSlots = (*Slots)(nil)

// NewSlots creates a semaphore with n slots; n <= 0 picks DefaultSlotCount.
func NewSlots(n int) *Slots {
	if n <= 0 {
		n = DefaultSlotCount(DetectEnvironment())
	}
	return &Slots{sem: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx ends. The returned release
// func is safe to call more than once.
func (s *Slots) Acquire(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, apperrors.NewUnavailable("server busy, try again later")
	}

	s.active.Add(1)
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			s.active.Add(-1)
			<-s.sem
		}
	}, nil
}

// Capacity is the total number of slots.
func (s *Slots) Capacity() int { return cap(s.sem) }

// InUse is the number of currently held slots.
func (s *Slots) InUse() int { return int(s.active.Load()) }

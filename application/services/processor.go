// Package services holds the application use cases.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/events"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	mediaFailureMessage = "media processing failed"

	StageDownload  = "download"
	StagePivot     = "pivot"
	StageStretch   = "stretch"
	StageCorrect   = "correct"
	StageAnalyze   = "loudnorm_analyze"
	StageNormalize = "loudnorm_apply"
	StageAdjust    = "adjust"
	StageEncode    = "encode"
	StageVerify    = "verify"
	StageStore     = "store"
)

// intermediate files are 32-bit float PCM at the pivot rate, mono
var intermediateArgs = []string{"-c:a", "pcm_f32le", "-ar", strconv.Itoa(audio.PivotSampleRate), "-ac", "1"}

// Metrics receives pipeline measurements.
type Metrics interface {
	JobStarted()
	JobFinished(status string)
	ObserveStage(stage string, d time.Duration)
	RecordDownload(bytes int64)
	ObserveFactor(f float64)
}

type nopMetrics struct{}

func (nopMetrics) JobStarted()                        {}
func (nopMetrics) JobFinished(string)                 {}
func (nopMetrics) ObserveStage(string, time.Duration) {}
func (nopMetrics) RecordDownload(int64)               {}
func (nopMetrics) ObserveFactor(float64)              {}

// ProcessorDeps groups the collaborators of a Processor.
type ProcessorDeps struct {
	Fetcher ports.SourceFetcher
	Media   ports.MediaTool
	Store   ports.ArtifactStore
	Jobs    ports.JobRepository
	Events  ports.EventBus
	Slots   ports.JobSlots
	Limits  ports.LimitsProvider
	Metrics Metrics
	Logger  *zap.Logger
}

// Processor runs the stretch pipeline: download, pivot, stretch, correct,
// two-pass loudness normalisation with fades, exact trim or pad, encode.
type Processor struct {
	fetcher  ports.SourceFetcher
	media    ports.MediaTool
	store    ports.ArtifactStore
	jobs     ports.JobRepository
	events   ports.EventBus
	slots    ports.JobSlots
	limits   ports.LimitsProvider
	metrics  Metrics
	logger   *zap.Logger
	tracer   trace.Tracer
	workDir  string
	loudness audio.LoudnessTarget

	now   func() time.Time
	newID func() audio.JobID
}

// NewProcessor creates a Processor writing scratch files under workDir
// (the OS temp dir when empty).
func NewProcessor(deps ProcessorDeps, workDir string) *Processor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &Processor{
		fetcher:  deps.Fetcher,
		media:    deps.Media,
		store:    deps.Store,
		jobs:     deps.Jobs,
		events:   deps.Events,
		slots:    deps.Slots,
		limits:   deps.Limits,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		tracer:   otel.Tracer("timestretch-api/processor"),
		workDir:  workDir,
		loudness: audio.BroadcastLoudness,
		now:      time.Now,
		newID:    audio.NewJobID,
	}
}

// Process validates req, runs the pipeline and returns the stored artifact's
// description. Errors are *apperrors.AppError carrying the HTTP status.
func (p *Processor) Process(ctx context.Context, req audio.ProcessRequest) (*audio.ProcessResult, error) {
	req = req.WithDefaults()
	if err := req.Validate(p.limits.Limits()); err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "Processor.Process", trace.WithAttributes(
		attribute.Int("audio.target_ms", req.TargetDurationMs),
		attribute.String("audio.format", string(req.FormatOut)),
		attribute.Bool("audio.preserve_pitch", req.PitchPreserved()),
	))
	defer span.End()

	release, err := p.slots.Acquire(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "no job slot")
		return nil, err
	}
	defer release()

	job := audio.NewJob(p.newID(), req, p.now())
	span.SetAttributes(attribute.String("job.id", job.ID.String()))
	if err := p.jobs.Save(ctx, job); err != nil {
		return nil, apperrors.NewInternal("failed to record job", err)
	}

	logger := p.logger.With(zap.String("jobID", job.ID.String()))
	p.metrics.JobStarted()

	result, artifact, err := p.run(ctx, job, logger)
	if err != nil {
		err = p.publicError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.fail(ctx, job, err, logger)
		return nil, err
	}

	if err := job.Complete(*result, artifact, p.now()); err != nil {
		return nil, apperrors.NewInternal("failed to complete job", err)
	}
	recordCtx := context.WithoutCancel(ctx)
	if err := p.jobs.Save(recordCtx, job); err != nil {
		logger.Error("Failed to save completed job", zap.Error(err))
	}
	if err := p.events.Publish(recordCtx, events.NewAudioProcessed(job, p.now())); err != nil {
		logger.Warn("Failed to publish audio.processed", zap.Error(err))
	}
	p.metrics.JobFinished(string(audio.JobCompleted))

	logger.Info("Audio processed",
		zap.String("artifact", artifact),
		zap.Int("targetMs", req.TargetDurationMs),
		zap.Int("finalMs", result.FinalDurationMs),
		zap.Float64("factor", result.Factor),
	)
	return result, nil
}

// fail records the failure on the job, even if the request was cancelled.
func (p *Processor) fail(ctx context.Context, job *audio.Job, err error, logger *zap.Logger) {
	recordCtx := context.WithoutCancel(ctx)
	message := err.Error()
	if appErr := apperrors.GetAppError(err); appErr != nil {
		message = appErr.Message
	}

	logger.Warn("Audio processing failed", zap.Error(err))
	p.metrics.JobFinished(string(audio.JobFailed))

	if ferr := job.Fail(message, p.now()); ferr != nil {
		return
	}
	if serr := p.jobs.Save(recordCtx, job); serr != nil {
		logger.Error("Failed to save failed job", zap.Error(serr))
	}
	if perr := p.events.Publish(recordCtx, events.NewAudioFailed(job, p.now())); perr != nil {
		logger.Warn("Failed to publish audio.failed", zap.Error(perr))
	}
}

// publicError maps anything that is not already an AppError to a 500 that
// does not leak tool output. Cancellation becomes a 504.
func (p *Processor) publicError(err error) error {
	if apperrors.GetAppError(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewTimeout("processing did not finish in time").WithCause(err)
	}
	if errors.Is(err, audio.ErrLoudnessStats) {
		return apperrors.NewInternal(audio.ErrLoudnessStats.Error(), err)
	}
	return apperrors.NewInternal(mediaFailureMessage, err)
}

// workFiles names the scratch files of one run.
type workFiles struct {
	dir, src, pivot, step1, step2, norm, adjusted string
}

func newWorkFiles(dir string) workFiles {
	return workFiles{
		dir:      dir,
		src:      filepath.Join(dir, "in"),
		pivot:    filepath.Join(dir, "pivot.wav"),
		step1:    filepath.Join(dir, "step1.wav"),
		step2:    filepath.Join(dir, "step2.wav"),
		norm:     filepath.Join(dir, "norm.wav"),
		adjusted: filepath.Join(dir, "adjusted.wav"),
	}
}

func (p *Processor) run(ctx context.Context, job *audio.Job, logger *zap.Logger) (*audio.ProcessResult, string, error) {
	req := job.Request
	target := req.TargetDurationMs
	preserve := req.PitchPreserved()

	dir, err := os.MkdirTemp(p.workDir, "stretch-"+job.ID.String()+"-")
	if err != nil {
		return nil, "", apperrors.NewInternal("failed to create work directory", err)
	}
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			logger.Warn("Failed to remove work directory", zap.String("dir", dir), zap.Error(rerr))
		}
	}()
	f := newWorkFiles(dir)

	// Download
	err = p.stage(ctx, StageDownload, logger, func(ctx context.Context) error {
		n, err := p.fetcher.Fetch(ctx, req.AudioURL, f.src)
		if err != nil {
			return apperrors.NewBadRequest(fmt.Sprintf("Cannot download source: %v", err)).WithCause(err)
		}
		p.metrics.RecordDownload(n)
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	// Pivot to 48 kHz mono float
	var inMs int
	err = p.stage(ctx, StagePivot, logger, func(ctx context.Context) error {
		if err := p.media.Transcode(ctx, ports.TranscodeSpec{Input: f.src, Output: f.pivot, Args: intermediateArgs}); err != nil {
			return err
		}
		inMs, err = p.media.ProbeDurationMs(ctx, f.pivot)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	factor, err := audio.StretchFactor(target, inMs)
	if err != nil {
		return nil, "", err
	}
	p.metrics.ObserveFactor(factor)
	if err := audio.CheckFactor(factor, p.limits.Limits()); err != nil {
		return nil, "", err
	}

	// Main stretch
	var step1Ms int
	err = p.stage(ctx, StageStretch, logger, func(ctx context.Context) error {
		spec := ports.TranscodeSpec{
			Input:  f.pivot,
			Output: f.step1,
			Filter: audio.StretchFilter(factor, preserve, true),
			Args:   intermediateArgs,
		}
		if err := p.media.Transcode(ctx, spec); err != nil {
			return err
		}
		step1Ms, err = p.media.ProbeDurationMs(ctx, f.step1)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	// Correction pass for the residual error of the first stretch
	factorCorr, err := audio.StretchFactor(target, step1Ms)
	if err != nil {
		return nil, "", apperrors.NewInternal(mediaFailureMessage, err)
	}
	var step2Ms int
	err = p.stage(ctx, StageCorrect, logger, func(ctx context.Context) error {
		spec := ports.TranscodeSpec{
			Input:  f.step1,
			Output: f.step2,
			Filter: audio.StretchFilter(factorCorr, preserve, false),
			Args:   intermediateArgs,
		}
		if err := p.media.Transcode(ctx, spec); err != nil {
			return err
		}
		step2Ms, err = p.media.ProbeDurationMs(ctx, f.step2)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	// Loudness measurement
	var stats audio.LoudnessStats
	err = p.stage(ctx, StageAnalyze, logger, func(ctx context.Context) error {
		stats, err = p.media.AnalyzeLoudness(ctx, f.step2, p.loudness)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	// Normalisation with fades
	var normMs int
	err = p.stage(ctx, StageNormalize, logger, func(ctx context.Context) error {
		spec := ports.TranscodeSpec{
			Input:  f.step2,
			Output: f.norm,
			Filter: audio.LoudnormApplyFilter(p.loudness, stats, step2Ms),
			Args:   intermediateArgs,
		}
		if err := p.media.Transcode(ctx, spec); err != nil {
			return err
		}
		normMs, err = p.media.ProbeDurationMs(ctx, f.norm)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	// Exact duration
	current := f.norm
	adj := audio.PlanAdjustment(target, normMs)
	if adj.Kind != audio.AdjustNone {
		err = p.stage(ctx, StageAdjust, logger, func(ctx context.Context) error {
			logger.Debug("Adjusting duration", zap.Stringer("kind", adj.Kind), zap.Int("deltaMs", adj.DeltaMs))
			return p.media.Transcode(ctx, ports.TranscodeSpec{
				Input:  f.norm,
				Output: f.adjusted,
				Filter: audio.AdjustFilter(adj),
				Args:   intermediateArgs,
			})
		})
		if err != nil {
			return nil, "", err
		}
		current = f.adjusted
	}

	// Encode
	final := current
	if req.FormatOut == audio.FormatMP3 {
		final = filepath.Join(dir, "final."+req.FormatOut.Extension())
		err = p.stage(ctx, StageEncode, logger, func(ctx context.Context) error {
			return p.media.Transcode(ctx, ports.TranscodeSpec{
				Input:  current,
				Output: final,
				Args:   []string{"-c:a", "libmp3lame", "-b:a", fmt.Sprintf("%dk", req.BitrateKbps)},
			})
		})
		if err != nil {
			return nil, "", err
		}
	}

	// Verify
	var outMs int
	err = p.stage(ctx, StageVerify, logger, func(ctx context.Context) error {
		outMs, err = p.media.ProbeDurationMs(ctx, final)
		if err != nil {
			return err
		}
		return audio.CheckFinalDuration(outMs, target)
	})
	if err != nil {
		return nil, "", err
	}

	// Store
	name := audio.ArtifactName(job.ID, target, req.FormatOut)
	err = p.stage(ctx, StageStore, logger, func(ctx context.Context) error {
		if err := p.store.Put(ctx, name, final); err != nil {
			return apperrors.NewInternal("failed to store artifact", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return &audio.ProcessResult{
		JobID:            job.ID,
		DownloadURL:      audio.DownloadPath(name),
		FinalDurationMs:  outMs,
		Factor:           audio.Round6(factor),
		FactorCorrection: audio.Round6(factorCorr),
		Pipeline:         audio.PipelineLabel(preserve),
		Meta: audio.ResultMeta{
			InputDurationMs: inMs,
			PostNormMs:      normMs,
		},
	}, name, nil
}

// stage runs fn inside a child span and records its duration.
func (p *Processor) stage(ctx context.Context, name string, logger *zap.Logger, fn func(ctx context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "stage."+name)
	defer span.End()

	start := p.now()
	err := fn(ctx)
	elapsed := p.now().Sub(start)
	p.metrics.ObserveStage(name, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		logger.Debug("Stage failed", zap.String("stage", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	}
	logger.Debug("Stage done", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	return nil
}

// Job returns the record of a previous request.
func (p *Processor) Job(ctx context.Context, id audio.JobID) (*audio.Job, error) {
	return p.jobs.Get(ctx, id)
}

package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/events"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mocks

type mockMedia struct {
	mock.Mock
	mu    sync.Mutex
	specs []ports.TranscodeSpec
}

func (m *mockMedia) Transcode(ctx context.Context, spec ports.TranscodeSpec) error {
	m.mu.Lock()
	m.specs = append(m.specs, spec)
	m.mu.Unlock()
	return m.Called(ctx, spec).Error(0)
}

func (m *mockMedia) AnalyzeLoudness(ctx context.Context, input string, target audio.LoudnessTarget) (audio.LoudnessStats, error) {
	args := m.Called(ctx, input, target)
	return args.Get(0).(audio.LoudnessStats), args.Error(1)
}

func (m *mockMedia) ProbeDurationMs(ctx context.Context, path string) (int, error) {
	args := m.Called(ctx, path)
	return args.Int(0), args.Error(1)
}

func (m *mockMedia) filterFor(output string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.specs {
		if strings.HasSuffix(s.Output, output) {
			return s.Filter
		}
	}
	return ""
}

func (m *mockMedia) wrote(output string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.specs {
		if strings.HasSuffix(s.Output, output) {
			return true
		}
	}
	return false
}

func (m *mockMedia) specFor(output string) ports.TranscodeSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.specs {
		if strings.HasSuffix(s.Output, output) {
			return s
		}
	}
	return ports.TranscodeSpec{}
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	args := m.Called(ctx, rawURL, dest)
	return args.Get(0).(int64), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, name, srcPath string) error {
	return m.Called(ctx, name, srcPath).Error(0)
}

func (m *mockStore) Open(ctx context.Context, name string) (ports.Artifact, ports.ArtifactInfo, error) {
	args := m.Called(ctx, name)
	return nil, ports.ArtifactInfo{}, args.Error(2)
}

func (m *mockStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) CheckWritable(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Fakes

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[audio.JobID]audio.Job
}

func (f *fakeJobs) Save(ctx context.Context, job *audio.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = *job
	return nil
}

func (f *fakeJobs) Get(ctx context.Context, id audio.JobID) (*audio.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, apperrors.NewNotFound("Job not found")
	}
	return &job, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (b *fakeBus) Publish(ctx context.Context, e events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *fakeBus) PublishBatch(ctx context.Context, es []events.DomainEvent) error {
	for _, e := range es {
		_ = b.Publish(ctx, e)
	}
	return nil
}

func (b *fakeBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type fakeSlots struct {
	acquired int
	err      error
}

func (s *fakeSlots) Acquire(ctx context.Context) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.acquired++
	return func() { s.acquired-- }, nil
}

type staticLimits audio.Limits

func (l staticLimits) Limits() audio.Limits { return audio.Limits(l) }

// Harness

var fixedID, _ = audio.ParseJobID("0123456789abcdef0123456789abcdef")

var sampleStats = audio.LoudnessStats{
	InputI: "-27.61", InputTP: "-4.47", InputLRA: "18.06", InputThresh: "-39.20", TargetOffset: "0.04",
}

type harness struct {
	proc    *Processor
	media   *mockMedia
	fetcher *mockFetcher
	store   *mockStore
	jobs    *fakeJobs
	bus     *fakeBus
	slots   *fakeSlots
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		media:   new(mockMedia),
		fetcher: new(mockFetcher),
		store:   new(mockStore),
		jobs:    &fakeJobs{jobs: make(map[audio.JobID]audio.Job)},
		bus:     &fakeBus{},
		slots:   &fakeSlots{},
	}
	h.proc = NewProcessor(ProcessorDeps{
		Fetcher: h.fetcher,
		Media:   h.media,
		Store:   h.store,
		Jobs:    h.jobs,
		Events:  h.bus,
		Slots:   h.slots,
		Limits:  staticLimits(audio.DefaultLimits()),
	}, t.TempDir())
	h.proc.newID = func() audio.JobID { return fixedID }
	return h
}

func (h *harness) duration(suffix string, ms int) {
	h.media.On("ProbeDurationMs", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasSuffix(p, suffix)
	})).Return(ms, nil)
}

// happyPath wires durations for a 10 s source stretched to 11 s whose
// normalised output comes back 5 ms long.
func (h *harness) happyPath() {
	h.fetcher.On("Fetch", mock.Anything, "https://example.com/in.wav", mock.Anything).Return(int64(1024), nil)
	h.media.On("Transcode", mock.Anything, mock.Anything).Return(nil)
	h.media.On("AnalyzeLoudness", mock.Anything, mock.Anything, audio.BroadcastLoudness).Return(sampleStats, nil)
	h.duration("pivot.wav", 10000)
	h.duration("step1.wav", 10998)
	h.duration("step2.wav", 11000)
	h.duration("norm.wav", 11005)
	h.duration("final.mp3", 11000)
	h.store.On("Put", mock.Anything, "chronique_0123456789abcdef0123456789abcdef_11000.mp3", mock.Anything).Return(nil)
}

func request(target int) audio.ProcessRequest {
	return audio.ProcessRequest{AudioURL: "https://example.com/in.wav", TargetDurationMs: target}
}

func TestProcessor_Process_Success(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.happyPath()

	// Act
	result, err := h.proc.Process(context.Background(), request(11000))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fixedID, result.JobID)
	assert.Equal(t, "/dl/chronique_0123456789abcdef0123456789abcdef_11000.mp3", result.DownloadURL)
	assert.Equal(t, 11000, result.FinalDurationMs)
	assert.Equal(t, 1.1, result.Factor)
	assert.Equal(t, audio.Round6(11000.0/10998.0), result.FactorCorrection)
	assert.Equal(t, audio.PipelineTempo, result.Pipeline)
	assert.Equal(t, audio.ResultMeta{InputDurationMs: 10000, PostNormMs: 11005}, result.Meta)

	assert.Contains(t, h.media.filterFor("step1.wav"), "atempo=0.90909091")
	assert.True(t, strings.HasPrefix(h.media.filterFor("step1.wav"), "aformat=sample_fmts=fltp:sample_rates=48000:channel_layouts=mono,"))
	assert.Contains(t, h.media.filterFor("norm.wav"), "afade=t=out:st=10.990000:d=0.01")
	assert.Equal(t, "atrim=0:11.000000,asetpts=N/SR/TB", h.media.filterFor("adjusted.wav"))
	assert.True(t, h.media.wrote("final.mp3"))

	job, err := h.jobs.Get(context.Background(), fixedID)
	require.NoError(t, err)
	assert.Equal(t, audio.JobCompleted, job.Status)
	assert.Equal(t, "chronique_0123456789abcdef0123456789abcdef_11000.mp3", job.ArtifactName)
	assert.Equal(t, []string{events.TypeAudioProcessed}, h.bus.types())
	assert.Equal(t, 0, h.slots.acquired)

	h.store.AssertExpectations(t)
	h.fetcher.AssertExpectations(t)
}

func TestProcessor_Process_WavSkipsEncodeAndAdjustWithinTolerance(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	h.media.On("Transcode", mock.Anything, mock.Anything).Return(nil)
	h.media.On("AnalyzeLoudness", mock.Anything, mock.Anything, mock.Anything).Return(sampleStats, nil)
	h.duration("pivot.wav", 10000)
	h.duration("step1.wav", 9000)
	h.duration("step2.wav", 9000)
	h.duration("norm.wav", 9001)
	h.store.On("Put", mock.Anything, "chronique_0123456789abcdef0123456789abcdef_9000.wav", mock.MatchedBy(func(p string) bool {
		return strings.HasSuffix(p, "norm.wav")
	})).Return(nil)

	preserve := false
	req := request(9000)
	req.FormatOut = audio.FormatWAV
	req.PreservePitch = &preserve

	result, err := h.proc.Process(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 9001, result.FinalDurationMs)
	assert.Equal(t, audio.PipelineResample, result.Pipeline)
	assert.Contains(t, h.media.filterFor("step1.wav"), "asetrate=53333.333333,aresample=48000")
	assert.False(t, h.media.wrote("adjusted.wav"))
	assert.False(t, h.media.wrote("final.mp3"))
	h.store.AssertExpectations(t)
}

func TestProcessor_Process_PadsShortNormalisedOutput(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	h.media.On("Transcode", mock.Anything, mock.Anything).Return(nil)
	h.media.On("AnalyzeLoudness", mock.Anything, mock.Anything, mock.Anything).Return(sampleStats, nil)
	h.duration("pivot.wav", 10000)
	h.duration("step1.wav", 11000)
	h.duration("step2.wav", 11000)
	h.duration("norm.wav", 10990)
	h.duration("final.mp3", 11000)
	h.store.On("Put", mock.Anything, "chronique_0123456789abcdef0123456789abcdef_11000.mp3", mock.Anything).Return(nil)

	result, err := h.proc.Process(context.Background(), request(11000))

	require.NoError(t, err)
	assert.Equal(t, 11000, result.FinalDurationMs)
	assert.Equal(t, 10990, result.Meta.PostNormMs)
	assert.Equal(t, "apad=pad_dur=0.010000,atrim=0:11.000000,asetpts=N/SR/TB", h.media.filterFor("adjusted.wav"))
	adjusted := h.media.specFor("adjusted.wav")
	assert.True(t, strings.HasSuffix(adjusted.Input, "norm.wav"))
	assert.Equal(t, []string{"-c:a", "pcm_f32le", "-ar", "48000", "-ac", "1"}, adjusted.Args)
	assert.Equal(t, adjusted.Args, h.media.specFor("pivot.wav").Args)
	assert.True(t, strings.HasSuffix(h.media.specFor("final.mp3").Input, "adjusted.wav"))
	h.store.AssertExpectations(t)
}

func TestProcessor_Process_Failures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(h *harness)
		target      int
		wantStatus  int
		wantMessage string
		wantJob     bool
	}{
		{
			name:        "target out of bounds",
			setup:       func(h *harness) {},
			target:      180001,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantMessage: "target_duration_ms out of bounds (0, 180000]",
		},
		{
			name: "download failure",
			setup: func(h *harness) {
				h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("HTTP Error 404: Not Found"))
			},
			target:      11000,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Cannot download source: HTTP Error 404: Not Found",
			wantJob:     true,
		},
		{
			name: "factor outside bounds",
			setup: func(h *harness) {
				h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
				h.media.On("Transcode", mock.Anything, mock.Anything).Return(nil)
				h.duration("pivot.wav", 5000)
			},
			target:      10000,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Stretch factor 2.000 outside [0.8,1.25]",
			wantJob:     true,
		},
		{
			name: "tool failure",
			setup: func(h *harness) {
				h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
				h.media.On("Transcode", mock.Anything, mock.Anything).Return(errors.New("exit status 1"))
			},
			target:      11000,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "media processing failed",
			wantJob:     true,
		},
		{
			name: "loudnorm stats missing",
			setup: func(h *harness) {
				h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
				h.media.On("Transcode", mock.Anything, mock.Anything).Return(nil)
				h.media.On("AnalyzeLoudness", mock.Anything, mock.Anything, mock.Anything).Return(audio.LoudnessStats{}, audio.ErrLoudnessStats)
				h.duration("pivot.wav", 10000)
				h.duration("step1.wav", 11000)
				h.duration("step2.wav", 11000)
			},
			target:      11000,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "loudnorm analysis failed",
			wantJob:     true,
		},
		{
			name: "final duration mismatch",
			setup: func(h *harness) {
				h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
				h.media.On("Transcode", mock.Anything, mock.Anything).Return(nil)
				h.media.On("AnalyzeLoudness", mock.Anything, mock.Anything, mock.Anything).Return(sampleStats, nil)
				h.duration("pivot.wav", 10000)
				h.duration("step1.wav", 11000)
				h.duration("step2.wav", 11000)
				h.duration("norm.wav", 11000)
				h.duration("final.mp3", 11026)
			},
			target:      11000,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Final duration mismatch 11026 vs 11000",
			wantJob:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := newHarness(t)
			tt.setup(h)

			// Act
			result, err := h.proc.Process(context.Background(), request(tt.target))

			// Assert
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.wantStatus, apperrors.StatusCode(err))
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantMessage, appErr.Message)

			job, jerr := h.jobs.Get(context.Background(), fixedID)
			if !tt.wantJob {
				assert.Error(t, jerr)
				assert.Empty(t, h.bus.types())
				return
			}
			require.NoError(t, jerr)
			assert.Equal(t, audio.JobFailed, job.Status)
			assert.Equal(t, tt.wantMessage, job.Error)
			assert.Equal(t, []string{events.TypeAudioFailed}, h.bus.types())
			h.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProcessor_Process_NoSlot(t *testing.T) {
	h := newHarness(t)
	h.slots.err = apperrors.NewUnavailable("server busy, try again later")

	_, err := h.proc.Process(context.Background(), request(11000))

	assert.Equal(t, http.StatusServiceUnavailable, apperrors.StatusCode(err))
	h.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_Process_CancelledBecomesTimeout(t *testing.T) {
	h := newHarness(t)
	h.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	h.media.On("Transcode", mock.Anything, mock.Anything).Return(context.DeadlineExceeded)

	_, err := h.proc.Process(context.Background(), request(11000))

	assert.Equal(t, http.StatusGatewayTimeout, apperrors.StatusCode(err))
}

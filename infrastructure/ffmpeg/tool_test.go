package ffmpeg

import (
	"context"
	"errors"
	"testing"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	called := m.Called(ctx, name, args)
	var stdout, stderr []byte
	if v := called.Get(0); v != nil {
		stdout = v.([]byte)
	}
	if v := called.Get(1); v != nil {
		stderr = v.([]byte)
	}
	return stdout, stderr, called.Error(2)
}

const loudnormStderr = `[Parsed_loudnorm_0 @ 0x55d2c8c0b400]
{
	"input_i" : "-27.61",
	"input_tp" : "-4.47",
	"input_lra" : "18.06",
	"input_thresh" : "-39.20",
	"output_i" : "-23.04",
	"output_tp" : "-1.00",
	"output_lra" : "7.00",
	"output_thresh" : "-34.14",
	"normalization_type" : "dynamic",
	"target_offset" : "0.04"
}
`

func TestTranscodeArgs(t *testing.T) {
	t.Run("file output with filter and extra args", func(t *testing.T) {
		args := TranscodeArgs(ports.TranscodeSpec{
			Input:  "in",
			Output: "out.wav",
			Filter: "atempo=1.0",
			Args:   []string{"-ac", "1"},
		})
		assert.Equal(t, []string{"-hide_banner", "-nostdin", "-y", "-i", "in", "-af", "atempo=1.0", "-ac", "1", "out.wav"}, args)
	})

	t.Run("null output", func(t *testing.T) {
		args := TranscodeArgs(ports.TranscodeSpec{Input: "in"})
		assert.Equal(t, []string{"-hide_banner", "-nostdin", "-y", "-i", "in", "-f", "null", "-"}, args)
	})
}

func TestParseLoudnormStats(t *testing.T) {
	stats, err := ParseLoudnormStats(loudnormStderr)
	require.NoError(t, err)
	assert.Equal(t, "-27.61", stats.InputI)
	assert.Equal(t, "-4.47", stats.InputTP)
	assert.Equal(t, "18.06", stats.InputLRA)
	assert.Equal(t, "-39.20", stats.InputThresh)
	assert.Equal(t, "0.04", stats.TargetOffset)
	assert.Equal(t, "dynamic", stats.NormalizeType)
}

func TestParseLoudnormStats_Failures(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
	}{
		{name: "no json", stderr: "Error while filtering"},
		{name: "broken json", stderr: "{ \"input_i\" : }"},
		{name: "missing fields", stderr: `{"input_i": "-20"}`},
		{name: "reversed braces", stderr: "} {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLoudnormStats(tt.stderr)
			assert.ErrorIs(t, err, ErrLoudnormStats)
		})
	}
}

func TestParseDuration(t *testing.T) {
	ms, err := ParseDuration("12.345678\n")
	require.NoError(t, err)
	assert.Equal(t, 12346, ms)

	_, err = ParseDuration("N/A")
	assert.Error(t, err)

	_, err = ParseDuration("-1")
	assert.Error(t, err)
}

func TestTool_ProbeDurationMs(t *testing.T) {
	ctx := context.Background()
	runner := new(mockRunner)
	runner.On("Run", ctx, "ffprobe", ProbeArgs("/work/pivot.wav")).Return([]byte("3.000000\n"), nil, nil)

	tool := NewTool(Config{}, runner, nil)
	ms, err := tool.ProbeDurationMs(ctx, "/work/pivot.wav")

	require.NoError(t, err)
	assert.Equal(t, 3000, ms)
	runner.AssertExpectations(t)
}

func TestTool_AnalyzeLoudness(t *testing.T) {
	ctx := context.Background()
	runner := new(mockRunner)
	expectedArgs := []string{"-hide_banner", "-nostdin", "-y", "-i", "step2.wav",
		"-af", "loudnorm=I=-23:LRA=7:TP=-1:print_format=json", "-f", "null", "-"}
	runner.On("Run", ctx, "/opt/ffmpeg", expectedArgs).Return(nil, []byte(loudnormStderr), nil)

	tool := NewTool(Config{FFmpegPath: "/opt/ffmpeg"}, runner, nil)
	stats, err := tool.AnalyzeLoudness(ctx, "step2.wav", audio.BroadcastLoudness)

	require.NoError(t, err)
	assert.Equal(t, "-27.61", stats.InputI)
	runner.AssertExpectations(t)
}

func TestTool_TranscodeWrapsToolError(t *testing.T) {
	ctx := context.Background()
	runner := new(mockRunner)
	toolErr := &ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input"}
	runner.On("Run", ctx, "ffmpeg", mock.Anything).Return(nil, nil, toolErr)

	tool := NewTool(Config{}, runner, nil)
	err := tool.Transcode(ctx, ports.TranscodeSpec{Input: "in", Output: "out.wav"})

	require.Error(t, err)
	var got *ToolError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 1, got.ExitCode)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestToolError_Tail(t *testing.T) {
	long := make([]byte, stderrTailBytes+10)
	for i := range long {
		long[i] = 'a'
	}
	long[len(long)-1] = 'z'

	got := tail(string(long), stderrTailBytes)
	assert.Len(t, got, stderrTailBytes)
	assert.Equal(t, byte('z'), got[len(got)-1])
}

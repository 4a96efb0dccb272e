package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"

	"go.uber.org/zap"
)

// ErrLoudnormStats is returned when the analysis pass printed no usable stats.
var ErrLoudnormStats = audio.ErrLoudnessStats

// Config selects the binaries to run.
type Config struct {
	FFmpegPath  string
	FFprobePath string
}

// Tool implements ports.MediaTool on top of the ffmpeg binaries.
type Tool struct {
	ffmpeg  string
	ffprobe string
	runner  CommandRunner
	logger  *zap.Logger
}

var _ ports.MediaTool = (*Tool)(nil)

// NewTool creates a Tool. A nil runner uses ExecRunner.
func NewTool(cfg Config, runner CommandRunner, logger *zap.Logger) *Tool {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tool{
		ffmpeg:  cfg.FFmpegPath,
		ffprobe: cfg.FFprobePath,
		runner:  runner,
		logger:  logger,
	}
}

// TranscodeArgs renders the ffmpeg argument list for a spec.
func TranscodeArgs(spec ports.TranscodeSpec) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", spec.Input}
	if spec.Filter != "" {
		args = append(args, "-af", spec.Filter)
	}
	args = append(args, spec.Args...)
	if spec.Output == "" {
		return append(args, "-f", "null", "-")
	}
	return append(args, spec.Output)
}

// Transcode implements ports.MediaTool
func (t *Tool) Transcode(ctx context.Context, spec ports.TranscodeSpec) error {
	args := TranscodeArgs(spec)
	t.logger.Debug("Running ffmpeg", zap.Strings("args", args))

	if _, _, err := t.runner.Run(ctx, t.ffmpeg, args...); err != nil {
		return fmt.Errorf("transcode %s: %w", spec.Input, err)
	}
	return nil
}

// AnalyzeLoudness implements ports.MediaTool
func (t *Tool) AnalyzeLoudness(ctx context.Context, input string, target audio.LoudnessTarget) (audio.LoudnessStats, error) {
	args := TranscodeArgs(ports.TranscodeSpec{
		Input:  input,
		Filter: audio.LoudnormAnalysisFilter(target),
	})

	_, stderr, err := t.runner.Run(ctx, t.ffmpeg, args...)
	if err != nil {
		return audio.LoudnessStats{}, fmt.Errorf("loudness analysis of %s: %w", input, err)
	}
	return ParseLoudnormStats(string(stderr))
}

// ParseLoudnormStats extracts the JSON block loudnorm prints at the end of its
// stderr: everything between the first '{' and the last '}'.
func ParseLoudnormStats(stderr string) (audio.LoudnessStats, error) {
	start := strings.Index(stderr, "{")
	end := strings.LastIndex(stderr, "}")
	if start == -1 || end == -1 || end < start {
		return audio.LoudnessStats{}, ErrLoudnormStats
	}

	var stats audio.LoudnessStats
	if err := json.Unmarshal([]byte(stderr[start:end+1]), &stats); err != nil {
		return audio.LoudnessStats{}, fmt.Errorf("%w: %v", ErrLoudnormStats, err)
	}
	if !stats.Complete() {
		return audio.LoudnessStats{}, fmt.Errorf("%w: missing measurements", ErrLoudnormStats)
	}
	return stats, nil
}

// ProbeArgs renders the ffprobe argument list printing only the container duration.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// ProbeDurationMs implements ports.MediaTool
func (t *Tool) ProbeDurationMs(ctx context.Context, path string) (int, error) {
	stdout, _, err := t.runner.Run(ctx, t.ffprobe, ProbeArgs(path)...)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return ParseDuration(string(stdout))
}

// ParseDuration converts ffprobe's seconds output to rounded milliseconds.
func ParseDuration(out string) (int, error) {
	value := strings.TrimSpace(out)
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", value, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return audio.SecondsToMs(seconds), nil
}

// CheckAvailable verifies both binaries resolve.
func (t *Tool) CheckAvailable() error {
	for _, bin := range []string{t.ffmpeg, t.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

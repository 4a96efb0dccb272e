package audio

import (
	"errors"
	"fmt"
	"strings"
)

// LoudnessTarget is the EBU R128 target the normalisation passes aim for.
type LoudnessTarget struct {
	IntegratedLUFS float64
	LoudnessRange  float64
	TruePeakDBTP   float64
}

// BroadcastLoudness is I=-23 LUFS, LRA=7 LU, TP=-1 dBTP.
var BroadcastLoudness = LoudnessTarget{IntegratedLUFS: -23, LoudnessRange: 7, TruePeakDBTP: -1}

func (t LoudnessTarget) params() string {
	return fmt.Sprintf("I=%g:LRA=%g:TP=%g", t.IntegratedLUFS, t.LoudnessRange, t.TruePeakDBTP)
}

// ErrLoudnessStats means the analysis pass printed no usable measurements.
var ErrLoudnessStats = errors.New("loudnorm analysis failed")

// LoudnessStats are the measurements of the first loudnorm pass. Values are kept
// as the strings ffmpeg printed so the second pass receives them unaltered.
type LoudnessStats struct {
	InputI        string `json:"input_i"`
	InputTP       string `json:"input_tp"`
	InputLRA      string `json:"input_lra"`
	InputThresh   string `json:"input_thresh"`
	TargetOffset  string `json:"target_offset"`
	OutputI       string `json:"output_i,omitempty"`
	NormalizeType string `json:"normalization_type,omitempty"`
}

// Complete reports whether every value the second pass needs is present.
func (s LoudnessStats) Complete() bool {
	return s.InputI != "" && s.InputTP != "" && s.InputLRA != "" && s.InputThresh != "" && s.TargetOffset != ""
}

const pivotFormat = "aformat=sample_fmts=fltp:sample_rates=48000:channel_layouts=mono"

// StretchFilter scales the duration by factor. With preservePitch the tempo is
// changed (atempo takes a speed, so the duration ratio is inverted); otherwise the
// sample rate is reinterpreted and resampled, which shifts the pitch with the speed.
func StretchFilter(factor float64, preservePitch bool, withPivot bool) string {
	parts := make([]string, 0, 3)
	if withPivot {
		parts = append(parts, pivotFormat)
	}
	if preservePitch {
		parts = append(parts, fmt.Sprintf("atempo=%.8f", 1/factor))
	} else {
		parts = append(parts,
			fmt.Sprintf("asetrate=%.6f", float64(PivotSampleRate)/factor),
			fmt.Sprintf("aresample=%d", PivotSampleRate))
	}
	return strings.Join(parts, ",")
}

// LoudnormAnalysisFilter is the measuring pass, printing its stats as JSON.
func LoudnormAnalysisFilter(target LoudnessTarget) string {
	return "loudnorm=" + target.params() + ":print_format=json"
}

// LoudnormApplyFilter is the second pass using measured values, followed by
// 10 ms fades at both ends of audio lasting durationMs.
func LoudnormApplyFilter(target LoudnessTarget, stats LoudnessStats, durationMs int) string {
	ln := fmt.Sprintf("loudnorm=%s:measured_I=%s:measured_LRA=%s:measured_TP=%s:measured_thresh=%s:offset=%s:linear=true:print_format=summary",
		target.params(), stats.InputI, stats.InputLRA, stats.InputTP, stats.InputThresh, stats.TargetOffset)

	fadeOutStart := float64(durationMs)/1000.0 - FadeSeconds
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}
	return fmt.Sprintf("%s,afade=t=in:st=0:d=%g,afade=t=out:st=%.6f:d=%g", ln, FadeSeconds, fadeOutStart, FadeSeconds)
}

// AdjustFilter returns the filter that trims or pads to the exact target, or ""
// when no adjustment is needed.
func AdjustFilter(adj Adjustment) string {
	targetSeconds := float64(adj.TargetMs) / 1000.0
	switch adj.Kind {
	case AdjustTrim:
		return fmt.Sprintf("atrim=0:%.6f,asetpts=N/SR/TB", targetSeconds)
	case AdjustPad:
		padSeconds := float64(adj.DeltaMs) / 1000.0
		return fmt.Sprintf("apad=pad_dur=%.6f,atrim=0:%.6f,asetpts=N/SR/TB", padSeconds, targetSeconds)
	default:
		return ""
	}
}

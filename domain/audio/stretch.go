package audio

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"
)

const (
	// PivotSampleRate is the rate every stage works at.
	PivotSampleRate = 48000

	// TrimToleranceMs is how far the normalized audio may drift before it is trimmed or padded.
	TrimToleranceMs = 2

	// FinalToleranceMs is the largest accepted gap between the artifact and the target.
	FinalToleranceMs = 1

	// FadeSeconds is the length of the fade in and fade out.
	FadeSeconds = 0.01

	// ArtifactPrefix starts every produced file name.
	ArtifactPrefix = "chronique_"
)

// StretchFactor returns target/input, the ratio the duration must be scaled by.
func StretchFactor(targetMs, inputMs int) (float64, error) {
	if inputMs <= 0 {
		return 0, apperrors.NewBadRequest("Source audio has no measurable duration")
	}
	return float64(targetMs) / float64(inputMs), nil
}

// CheckFactor rejects a factor outside the configured bounds.
func CheckFactor(factor float64, limits Limits) error {
	if factor < limits.MinStretchFactor || factor > limits.MaxStretchFactor {
		return apperrors.NewBadRequest(fmt.Sprintf("Stretch factor %.3f outside [%g,%g]",
			factor, limits.MinStretchFactor, limits.MaxStretchFactor)).
			WithCode("FACTOR_OUT_OF_RANGE").
			WithDetails(map[string]interface{}{
				"factor": Round6(factor),
				"min":    limits.MinStretchFactor,
				"max":    limits.MaxStretchFactor,
			})
	}
	return nil
}

// Round6 rounds to six decimal places, the precision factors are reported with.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// SecondsToMs converts a probed duration in seconds to whole milliseconds.
func SecondsToMs(seconds float64) int {
	return int(math.Round(seconds * 1000))
}

// AdjustmentKind says what the exact-duration step has to do.
type AdjustmentKind int

const (
	AdjustNone AdjustmentKind = iota
	AdjustTrim
	AdjustPad
)

func (k AdjustmentKind) String() string {
	switch k {
	case AdjustTrim:
		return "trim"
	case AdjustPad:
		return "pad"
	default:
		return "none"
	}
}

// Adjustment is the plan for bringing normalized audio to the exact target length.
type Adjustment struct {
	Kind     AdjustmentKind
	TargetMs int
	// DeltaMs is target minus actual; positive means silence must be appended.
	DeltaMs int
}

// PlanAdjustment decides between nothing, a trim and a pad. Gaps within
// TrimToleranceMs are left alone.
func PlanAdjustment(targetMs, actualMs int) Adjustment {
	delta := targetMs - actualMs
	adj := Adjustment{Kind: AdjustNone, TargetMs: targetMs, DeltaMs: delta}
	if abs(delta) <= TrimToleranceMs {
		return adj
	}
	if delta < 0 {
		adj.Kind = AdjustTrim
	} else {
		adj.Kind = AdjustPad
	}
	return adj
}

// CheckFinalDuration fails when the produced artifact is off by more than FinalToleranceMs.
func CheckFinalDuration(outMs, targetMs int) error {
	if abs(outMs-targetMs) > FinalToleranceMs {
		return apperrors.NewInternal(fmt.Sprintf("Final duration mismatch %d vs %d", outMs, targetMs), nil)
	}
	return nil
}

// ArtifactName builds the public file name: chronique_<job>_<target>.<ext>.
func ArtifactName(id JobID, targetMs int, format Format) string {
	return fmt.Sprintf("%s%s_%d.%s", ArtifactPrefix, id.String(), targetMs, format.Extension())
}

var artifactNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// IsSafeArtifactName reports whether name can be joined to the store directory
// without escaping it.
func IsSafeArtifactName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false
	}
	if filepath.Base(name) != name {
		return false
	}
	return artifactNamePattern.MatchString(name)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

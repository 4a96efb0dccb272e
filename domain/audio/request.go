package audio

import (
	"fmt"
	"strings"

	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// DefaultBitrateKbps is the mp3 bitrate used when a request leaves bitrate_kbps unset.
const DefaultBitrateKbps = 192

var validate = validator.New()

// ProcessRequest is the body of a stretch request.
type ProcessRequest struct {
	AudioURL         string `json:"audio_url" validate:"required,url"`
	TargetDurationMs int    `json:"target_duration_ms"`
	// PreservePitch defaults to true when omitted.
	PreservePitch *bool  `json:"preserve_pitch,omitempty"`
	FormatOut     Format `json:"format_out,omitempty" validate:"omitempty,oneof=mp3 wav"`
	BitrateKbps   int    `json:"bitrate_kbps,omitempty" validate:"omitempty,oneof=96 128 160 192 224 256 320"`
}

// WithDefaults returns a copy with every optional field resolved.
func (r ProcessRequest) WithDefaults() ProcessRequest {
	if r.PreservePitch == nil {
		preserve := true
		r.PreservePitch = &preserve
	}
	if r.FormatOut == "" {
		r.FormatOut = DefaultFormat
	}
	if r.BitrateKbps == 0 {
		r.BitrateKbps = DefaultBitrateKbps
	}
	return r
}

// PitchPreserved reports whether the stretch must keep the original pitch.
func (r ProcessRequest) PitchPreserved() bool {
	return r.PreservePitch == nil || *r.PreservePitch
}

// Validate checks the request shape and the target duration against limits.
// Schema failures are validation errors; a target outside (0, max] is a 413.
func (r ProcessRequest) Validate(limits Limits) error {
	if err := validate.Struct(r); err != nil {
		return apperrors.NewValidation(formatValidationError(err))
	}
	if r.TargetDurationMs <= 0 || r.TargetDurationMs > limits.MaxTargetDurationMs {
		return apperrors.NewPayloadTooLarge(
			fmt.Sprintf("target_duration_ms out of bounds (0, %d]", limits.MaxTargetDurationMs))
	}
	return nil
}

func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	return strings.Join(messages, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := jsonFieldName(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func jsonFieldName(goName string) string {
	switch goName {
	case "AudioURL":
		return "audio_url"
	case "FormatOut":
		return "format_out"
	case "BitrateKbps":
		return "bitrate_kbps"
	default:
		return strings.ToLower(goName)
	}
}

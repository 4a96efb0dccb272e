package audio

import (
	"net/http"
	"testing"

	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestProcessRequest_WithDefaults(t *testing.T) {
	req := ProcessRequest{AudioURL: "https://example.com/a.wav", TargetDurationMs: 30000}.WithDefaults()

	require.NotNil(t, req.PreservePitch)
	assert.True(t, *req.PreservePitch)
	assert.Equal(t, FormatMP3, req.FormatOut)
	assert.Equal(t, 192, req.BitrateKbps)
}

func TestProcessRequest_WithDefaultsKeepsExplicitValues(t *testing.T) {
	req := ProcessRequest{
		AudioURL:         "https://example.com/a.wav",
		TargetDurationMs: 30000,
		PreservePitch:    boolPtr(false),
		FormatOut:        FormatWAV,
		BitrateKbps:      256,
	}.WithDefaults()

	assert.False(t, req.PitchPreserved())
	assert.Equal(t, FormatWAV, req.FormatOut)
	assert.Equal(t, 256, req.BitrateKbps)
}

func TestProcessRequest_Validate(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name       string
		req        ProcessRequest
		wantStatus int
		errMsg     string
	}{
		{
			name:       "valid https request",
			req:        ProcessRequest{AudioURL: "https://cdn.example.com/voice.mp3", TargetDurationMs: 60000},
			wantStatus: 0,
		},
		{
			name:       "valid file url",
			req:        ProcessRequest{AudioURL: "file:///tmp/voice.wav", TargetDurationMs: 1000},
			wantStatus: 0,
		},
		{
			name:       "target at the upper bound",
			req:        ProcessRequest{AudioURL: "https://example.com/a.wav", TargetDurationMs: 180000},
			wantStatus: 0,
		},
		{
			name:       "missing url",
			req:        ProcessRequest{TargetDurationMs: 1000},
			wantStatus: http.StatusUnprocessableEntity,
			errMsg:     "audio_url is required",
		},
		{
			name:       "unsupported format",
			req:        ProcessRequest{AudioURL: "https://example.com/a.wav", TargetDurationMs: 1000, FormatOut: "ogg"},
			wantStatus: http.StatusUnprocessableEntity,
			errMsg:     "format_out must be one of",
		},
		{
			name:       "unsupported bitrate",
			req:        ProcessRequest{AudioURL: "https://example.com/a.wav", TargetDurationMs: 1000, BitrateKbps: 193},
			wantStatus: http.StatusUnprocessableEntity,
			errMsg:     "bitrate_kbps must be one of",
		},
		{
			name:       "zero target",
			req:        ProcessRequest{AudioURL: "https://example.com/a.wav", TargetDurationMs: 0},
			wantStatus: http.StatusRequestEntityTooLarge,
			errMsg:     "target_duration_ms out of bounds (0, 180000]",
		},
		{
			name:       "negative target",
			req:        ProcessRequest{AudioURL: "https://example.com/a.wav", TargetDurationMs: -5},
			wantStatus: http.StatusRequestEntityTooLarge,
			errMsg:     "target_duration_ms out of bounds (0, 180000]",
		},
		{
			name:       "target above three minutes",
			req:        ProcessRequest{AudioURL: "https://example.com/a.wav", TargetDurationMs: 180001},
			wantStatus: http.StatusRequestEntityTooLarge,
			errMsg:     "target_duration_ms out of bounds (0, 180000]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(limits)
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, apperrors.StatusCode(err))
			assert.Contains(t, apperrors.GetAppError(err).Message, tt.errMsg)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" MP3 ")
	require.NoError(t, err)
	assert.Equal(t, FormatMP3, f)
	assert.Equal(t, "audio/mpeg", f.MimeType())

	f, err = ParseFormat("wav")
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", f.MimeType())

	_, err = ParseFormat("flac")
	assert.Error(t, err)
}

func TestMimeTypeForName(t *testing.T) {
	assert.Equal(t, "audio/mpeg", MimeTypeForName("chronique_x_1000.mp3"))
	assert.Equal(t, "audio/wav", MimeTypeForName("chronique_x_1000.wav"))
	assert.Equal(t, "audio/wav", MimeTypeForName("whatever"))
}

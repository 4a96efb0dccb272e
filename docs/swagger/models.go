package swagger

// ProcessRequest is the body of POST /process
// @Description Source and target of a stretch job
type ProcessRequest struct {
	// Source location (http, https; file only when enabled)
	AudioURL string `json:"audio_url" example:"https://example.com/chronique.mp3"`

	// Exact duration of the produced file
	TargetDurationMs int `json:"target_duration_ms" example:"11000"`

	// true keeps pitch (atempo), false changes speed by resampling
	PreservePitch bool `json:"preserve_pitch" example:"true" default:"true"`

	FormatOut string `json:"format_out" example:"mp3" enums:"mp3,wav" default:"mp3"`

	// MP3 bitrate, ignored for wav
	BitrateKbps int `json:"bitrate_kbps" example:"192" enums:"96,128,160,192,224,256,320" default:"192"`
}

// ProcessResult describes a produced artifact
type ProcessResult struct {
	JobID            string     `json:"job_id" example:"0123456789abcdef0123456789abcdef"`
	DownloadURL      string     `json:"download_url" example:"/dl/chronique_0123456789abcdef0123456789abcdef_11000.mp3"`
	FinalDurationMs  int        `json:"final_duration_ms" example:"11000"`
	Factor           float64    `json:"factor" example:"1.1"`
	FactorCorrection float64    `json:"factor_correction" example:"1.000182"`
	Pipeline         string     `json:"pipeline" example:"ffmpeg_atempo_double + loudnorm2 + fades + exact_trim"`
	Meta             ResultMeta `json:"meta"`
}

// ResultMeta carries intermediate measurements
type ResultMeta struct {
	InputDurationMs int `json:"input_duration_ms" example:"10000"`
	PostNormMs      int `json:"post_norm_ms" example:"11005"`
}

// Job is a processing job record
type Job struct {
	ID           string         `json:"id" example:"0123456789abcdef0123456789abcdef"`
	Status       string         `json:"status" example:"completed" enums:"processing,completed,failed"`
	Request      ProcessRequest `json:"request"`
	Result       *ProcessResult `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	ArtifactName string         `json:"artifact_name,omitempty"`
	CreatedAt    string         `json:"created_at" example:"2026-01-02T15:04:05Z"`
	UpdatedAt    string         `json:"updated_at" example:"2026-01-02T15:04:12Z"`
}

// ErrorResponse is returned for every error
type ErrorResponse struct {
	Error     bool   `json:"error" example:"true"`
	Type      string `json:"type" example:"VALIDATION"`
	Message   string `json:"message" example:"target_duration_ms out of bounds"`
	Detail    string `json:"detail" example:"target_duration_ms out of bounds"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ReadinessResponse reports each readiness check
type ReadinessResponse struct {
	Status string            `json:"status" example:"ready" enums:"ready,not_ready"`
	Checks map[string]string `json:"checks"`
}

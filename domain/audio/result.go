package audio

const (
	PipelineTempo    = "ffmpeg_atempo_double + loudnorm2 + fades + exact_trim"
	PipelineResample = "ffmpeg_resample_double + loudnorm2 + fades + exact_trim"
)

// PipelineLabel names the chain of filters a request runs through.
func PipelineLabel(preservePitch bool) string {
	if preservePitch {
		return PipelineTempo
	}
	return PipelineResample
}

// ResultMeta carries intermediate measurements.
type ResultMeta struct {
	InputDurationMs int `json:"input_duration_ms"`
	PostNormMs      int `json:"post_norm_ms"`
}

// ProcessResult is what a successful stretch returns.
type ProcessResult struct {
	JobID            JobID      `json:"job_id"`
	DownloadURL      string     `json:"download_url"`
	FinalDurationMs  int        `json:"final_duration_ms"`
	Factor           float64    `json:"factor"`
	FactorCorrection float64    `json:"factor_correction"`
	Pipeline         string     `json:"pipeline"`
	Meta             ResultMeta `json:"meta"`
}

// DownloadPath is the route an artifact is served from.
func DownloadPath(name string) string {
	return "/dl/" + name
}

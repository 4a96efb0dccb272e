package handlers

// This file contains OpenAPI/Swagger documentation for AudioHandler and HealthHandler endpoints

// Process stretches a source to an exact duration
// @Summary Time-stretch audio to a target duration
// @Description Downloads the source, stretches it to target_duration_ms, normalises loudness to -23 LUFS with short fades and trims or pads to the exact length
// @Tags audio
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replays the stored result for a repeated request"
// @Param request body swagger.ProcessRequest true "Processing request"
// @Success 200 {object} swagger.ProcessResult "Processed artifact"
// @Failure 400 {object} swagger.ErrorResponse "Source could not be downloaded or stretch factor out of range"
// @Failure 401 {object} swagger.ErrorResponse "Unauthorized"
// @Failure 413 {object} swagger.ErrorResponse "Target duration out of bounds"
// @Failure 422 {object} swagger.ErrorResponse "Invalid request"
// @Failure 429 {object} swagger.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} swagger.ErrorResponse "Media processing failed"
// @Failure 503 {object} swagger.ErrorResponse "Server busy"
// @Failure 504 {object} swagger.ErrorResponse "Processing timed out"
// @Security BearerAuth
// @Router /process [post]

// Download serves a processed artifact
// @Summary Download a processed file
// @Tags audio
// @Produce audio/mpeg
// @Produce audio/wav
// @Param name path string true "Artifact name" example:"chronique_0123456789abcdef0123456789abcdef_11000.mp3"
// @Success 200 {file} binary "Audio file"
// @Failure 404 {object} swagger.ErrorResponse "Not found"
// @Router /dl/{name} [get]

// GetJob returns a job record
// @Summary Get a processing job
// @Tags jobs
// @Produce json
// @Param jobID path string true "Job ID (32 hex characters)"
// @Success 200 {object} swagger.Job "Job record"
// @Failure 401 {object} swagger.ErrorResponse "Unauthorized"
// @Failure 404 {object} swagger.ErrorResponse "Job not found"
// @Security BearerAuth
// @Router /jobs/{jobID} [get]

// Health reports liveness
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]

// Ready reports readiness
// @Summary Readiness probe
// @Description Checks that ffmpeg and ffprobe resolve and the artifact directory is writable
// @Tags health
// @Produce json
// @Success 200 {object} swagger.ReadinessResponse
// @Failure 503 {object} swagger.ReadinessResponse
// @Router /ready [get]

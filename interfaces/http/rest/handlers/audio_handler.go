package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/api"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	// IdempotencyHeader lets clients retry POST /process without rerunning the pipeline.
	IdempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"

	maxBodyBytes = 1 << 20
)

// Processor is the use case behind the audio endpoints
type Processor interface {
	Process(ctx context.Context, req audio.ProcessRequest) (*audio.ProcessResult, error)
	Job(ctx context.Context, id audio.JobID) (*audio.Job, error)
}

// CacheMetrics counts idempotency cache lookups
type CacheMetrics interface {
	CacheHit()
	CacheMiss()
}

// AudioHandler serves processing, download and job lookups
type AudioHandler struct {
	processor      Processor
	store          ports.ArtifactStore
	cache          ports.Cache
	idempotencyTTL time.Duration
	metrics        CacheMetrics
	errors         *apperrors.ErrorHandler
	logger         *zap.Logger
	locks          *keyLocks
}

// NewAudioHandler creates a new audio handler. A nil cache disables
// idempotent replays.
func NewAudioHandler(
	processor Processor,
	store ports.ArtifactStore,
	cache ports.Cache,
	idempotencyTTL time.Duration,
	metrics CacheMetrics,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *AudioHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioHandler{
		processor:      processor,
		store:          store,
		cache:          cache,
		idempotencyTTL: idempotencyTTL,
		metrics:        metrics,
		errors:         errorHandler,
		logger:         logger,
		locks:          newKeyLocks(),
	}
}

// idempotentEntry is what the cache keeps per Idempotency-Key
type idempotentEntry struct {
	RequestHash string          `json:"request_hash"`
	Response    json.RawMessage `json:"response"`
}

// Process handles POST /process
func (h *AudioHandler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req audio.ProcessRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidation("Invalid request body: "+err.Error()))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	useCache := key != "" && h.cache != nil
	var hash string
	if useCache {
		hash = requestHash(req)
		release, err := h.locks.acquire(r.Context(), key)
		if err != nil {
			h.errors.Handle(w, r, apperrors.NewTimeout("Request with the same Idempotency-Key is still in progress"))
			return
		}
		defer release()

		entry, found := h.lookup(r.Context(), key)
		if found {
			if entry.RequestHash != hash {
				h.errors.Handle(w, r, apperrors.NewValidation("Idempotency-Key was already used with a different request"))
				return
			}
			h.hit()
			w.Header().Set(replayHeader, "true")
			writeRaw(w, http.StatusOK, entry.Response)
			return
		}
		h.miss()
	}

	result, err := h.processor.Process(r.Context(), req)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewInternal("failed to encode result", err))
		return
	}

	if useCache {
		h.remember(r.Context(), key, idempotentEntry{RequestHash: hash, Response: body})
	}

	writeRaw(w, http.StatusOK, body)
}

func (h *AudioHandler) lookup(ctx context.Context, key string) (idempotentEntry, bool) {
	var entry idempotentEntry
	raw, found, err := h.cache.Get(ctx, cacheKey(key))
	if err != nil {
		h.logger.Warn("Idempotency cache read failed", zap.Error(err))
		return entry, false
	}
	if !found {
		return entry, false
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		h.logger.Warn("Discarding corrupt idempotency entry", zap.Error(err))
		return entry, false
	}
	return entry, true
}

func (h *AudioHandler) remember(ctx context.Context, key string, entry idempotentEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, cacheKey(key), raw, h.idempotencyTTL); err != nil {
		h.logger.Warn("Idempotency cache write failed", zap.Error(err))
	}
}

func (h *AudioHandler) hit() {
	if h.metrics != nil {
		h.metrics.CacheHit()
	}
}

func (h *AudioHandler) miss() {
	if h.metrics != nil {
		h.metrics.CacheMiss()
	}
}

// Download handles GET /dl/{name}
func (h *AudioHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	artifact, info, err := h.store.Open(r.Context(), name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	defer artifact.Close()

	w.Header().Set("Content-Type", audio.MimeTypeForName(info.Name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", info.Name))
	http.ServeContent(w, r, info.Name, info.ModTime, artifact)
}

// GetJob handles GET /jobs/{jobID}
func (h *AudioHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := audio.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewNotFound("Job not found"))
		return
	}

	job, err := h.processor.Job(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, job)
}

func cacheKey(key string) string {
	return "idempotency:" + key
}

// requestHash fingerprints the effective request so a key cannot be replayed
// for a different job.
func requestHash(req audio.ProcessRequest) string {
	canonical, _ := json.Marshal(req.WithDefaults())
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	w.Write([]byte("\n"))
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/cache"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ProcessHandler handles upload processing and cache endpoints
type ProcessHandler struct {
	processing service.ProcessingService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewProcessHandler creates a new ProcessHandler
func NewProcessHandler(processing service.ProcessingService, validate *validator.Validate, logger zerolog.Logger) *ProcessHandler {
	return &ProcessHandler{
		processing: processing,
		validate:   validate,
		logger:     logger.With().Str("handler", "ProcessHandler").Logger(),
	}
}

// RegisterRoutes mounts processing routes
func (h *ProcessHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/api/process", authMw(http.HandlerFunc(h.process)))
	mux.Handle("/api/retry-summary", authMw(http.HandlerFunc(h.retrySummary)))
	mux.Handle("/api/cached-transcripts", authMw(http.HandlerFunc(h.cachedTranscripts)))
	mux.Handle("/api/cache/", authMw(http.HandlerFunc(h.deleteCache)))
}

func (h *ProcessHandler) process(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "File tidak ditemukan di request")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Gagal membaca file")
		return
	}

	result, err := h.processing.Process(r.Context(), header.Filename, content, middleware.UserID(r))
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	if result.Status == "partial" {
		respondJSON(w, http.StatusPartialContent, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ProcessHandler) retrySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req dto.RetrySummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	result, err := h.processing.RetrySummary(r.Context(), req.CacheKey)
	if errors.Is(err, cache.ErrCacheNotFound) {
		respondError(w, http.StatusNotFound, "Cache tidak ditemukan atau sudah expired. Silakan upload ulang file.")
		return
	}
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ProcessHandler) cachedTranscripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	entries, err := h.processing.ListCachedTranscripts(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list cached transcripts")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]dto.CachedTranscriptDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.CachedTranscriptDTO{
			CacheKey:        e.CacheKey,
			Filename:        e.Filename,
			DurationMinutes: e.DurationMinutes,
			CreatedAt:       e.CreatedAt.Format(time.RFC3339),
			ExpiresAt:       e.ExpiresAt.Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *ProcessHandler) deleteCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	cacheKey := strings.TrimPrefix(r.URL.Path, "/api/cache/")
	if cacheKey == "" {
		respondError(w, http.StatusBadRequest, "Cache key tidak valid")
		return
	}

	deleted, err := h.processing.DeleteCache(r.Context(), cacheKey)
	if err != nil {
		h.logger.Error().Err(err).Str("cache_key", cacheKey).Msg("Failed to delete cache entry")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Cache not found")
		return
	}
	respondJSON(w, http.StatusOK, dto.CacheDeletedResponse{Status: "success", Message: "Cache deleted"})
}

// respondPipelineError maps pipeline stages to HTTP statuses.
func (h *ProcessHandler) respondPipelineError(w http.ResponseWriter, err error) {
	var pe *service.PipelineError
	if !errors.As(err, &pe) {
		h.logger.Error().Err(err).Msg("Unexpected processing error")
		respondError(w, http.StatusInternalServerError, "Terjadi kesalahan: "+err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch pe.Stage {
	case service.StageInvalidFilename:
		status = http.StatusBadRequest
	case service.StageUnsupportedFormat:
		status = http.StatusUnsupportedMediaType
	case service.StageFileTooLarge:
		status = http.StatusRequestEntityTooLarge
	case service.StageTranscription, service.StageSummarization:
		status = http.StatusBadGateway
	}
	respondError(w, status, pe.Detail)
}

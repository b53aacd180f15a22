package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/media"

	"github.com/rs/zerolog"
)

// HealthHandler serves the API index and health diagnostics
type HealthHandler struct {
	cfg       *config.Config
	processor media.Processor
	logger    zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(cfg *config.Config, processor media.Processor, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:       cfg,
		processor: processor,
		logger:    logger.With().Str("handler", "HealthHandler").Logger(),
	}
}

// RegisterRoutes mounts root and health routes
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.index)
	mux.HandleFunc("/health", h.health)
}

type healthResponse struct {
	Status          string   `json:"status"`
	ConfigValid     bool     `json:"config_valid"`
	ConfigIssues    []string `json:"config_issues"`
	FFmpegInstalled bool     `json:"ffmpeg_installed"`
}

func (h *HealthHandler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        "AI Meeting Notes & Summarizer API",
		"version":     "1.1.0",
		"description": "Upload audio/video files to get transcripts and summaries",
		"endpoints": map[string]string{
			"health":             "/health",
			"process":            "/api/process",
			"retry_summary":      "/api/retry-summary",
			"cached_transcripts": "/api/cached-transcripts",
		},
	})
}

func (h *HealthHandler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	issues := h.cfg.Issues()
	ffmpegOK := h.processor.FFmpegInstalled(r.Context())

	status := "healthy"
	if len(issues) > 0 || !ffmpegOK {
		status = "degraded"
	}
	if issues == nil {
		issues = []string{}
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:          status,
		ConfigValid:     len(issues) == 0,
		ConfigIssues:    issues,
		FFmpegInstalled: ffmpegOK,
	})
}

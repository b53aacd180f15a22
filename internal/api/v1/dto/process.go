package dto

// RetrySummaryRequest asks for a new summarization run over a cached
// transcript.
type RetrySummaryRequest struct {
	CacheKey string `json:"cache_key" validate:"required"`
}

// CachedTranscriptDTO is one retry-able cache entry.
type CachedTranscriptDTO struct {
	CacheKey        string  `json:"cache_key"`
	Filename        string  `json:"filename"`
	DurationMinutes float64 `json:"duration_minutes"`
	CreatedAt       string  `json:"created_at"`
	ExpiresAt       string  `json:"expires_at"`
}

// CacheDeletedResponse confirms a cache entry removal.
type CacheDeletedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"app/internal/cache"
	"app/internal/media"
	"app/internal/model"
	"app/internal/pricing"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// Pipeline stages, carried on PipelineError so handlers can map failures
// to the right HTTP status.
const (
	StageInvalidFilename   = "invalid_filename"
	StageUnsupportedFormat = "unsupported_format"
	StageFileTooLarge      = "file_too_large"
	StageMediaProcessing   = "media_processing"
	StageTranscription     = "transcription"
	StageSummarization     = "summarization"
)

// PipelineError is a processing failure with a user-facing detail.
type PipelineError struct {
	Stage  string
	Detail string
}

func (e *PipelineError) Error() string {
	return e.Detail
}

const retryMessage = "Transkripsi berhasil! Gunakan cache_key untuk retry summarization tanpa biaya transkripsi."

// ProcessResult is the outcome of a processing run. Status is "success"
// when both transcription and summarization completed, "partial" when only
// transcription did.
type ProcessResult struct {
	Status           string         `json:"status"`
	Stage            string         `json:"stage,omitempty"`
	OriginalFilename string         `json:"original_filename"`
	DurationMinutes  float64        `json:"duration_minutes"`
	Transcript       string         `json:"transcript"`
	Summary          *model.Summary `json:"summary,omitempty"`
	CacheKey         string         `json:"cache_key,omitempty"`
	Error            string         `json:"error,omitempty"`
	Message          string         `json:"message,omitempty"`
}

// ProcessingService runs the upload pipeline: validate, normalize media,
// transcribe, cache, summarize, settle credits.
type ProcessingService interface {
	Process(ctx context.Context, filename string, content []byte, userID string) (*ProcessResult, error)
	// RetrySummary re-runs summarization from a cached transcript. It never
	// touches the credit ledger; transcription was already paid for.
	RetrySummary(ctx context.Context, cacheKey string) (*ProcessResult, error)
	ListCachedTranscripts(ctx context.Context) ([]cache.Entry, error)
	DeleteCache(ctx context.Context, cacheKey string) (bool, error)
}

type processingService struct {
	processor     media.Processor
	transcriber   Transcriber
	summarizer    Summarizer
	cache         cache.TranscriptCache
	credits       CreditsService
	recordingRepo repository.RecordingRepository
	maxFileBytes  int64
	procLogger    zerolog.Logger
}

// NewProcessingService creates a new ProcessingService.
func NewProcessingService(
	processor media.Processor,
	transcriber Transcriber,
	summarizer Summarizer,
	transcriptCache cache.TranscriptCache,
	credits CreditsService,
	recordingRepo repository.RecordingRepository,
	maxFileBytes int64,
	logger zerolog.Logger,
) ProcessingService {
	return &processingService{
		processor:     processor,
		transcriber:   transcriber,
		summarizer:    summarizer,
		cache:         transcriptCache,
		credits:       credits,
		recordingRepo: recordingRepo,
		maxFileBytes:  maxFileBytes,
		procLogger:    logger.With().Str("service", "ProcessingService").Logger(),
	}
}

func (s *processingService) Process(ctx context.Context, filename string, content []byte, userID string) (*ProcessResult, error) {
	if err := s.validate(filename, int64(len(content))); err != nil {
		return nil, err
	}
	s.procLogger.Info().
		Str("filename", filename).
		Int("size_bytes", len(content)).
		Msg("Processing file")

	cacheKey := cache.Key(filename, int64(len(content)))

	audioPath, durationMinutes, err := s.processor.Process(ctx, content, media.Extension(filename), media.IsVideo(filename))
	if err != nil {
		s.procLogger.Error().Err(err).Str("filename", filename).Msg("Media processing failed")
		return nil, &PipelineError{Stage: StageMediaProcessing, Detail: err.Error()}
	}
	s.procLogger.Info().Float64("duration_minutes", durationMinutes).Msg("Media processed")

	transcript, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		s.processor.Cleanup(audioPath)
		s.procLogger.Error().Err(err).Str("filename", filename).Msg("Transcription failed")
		return nil, &PipelineError{Stage: StageTranscription, Detail: err.Error()}
	}
	s.procLogger.Info().Int("transcript_chars", len(transcript)).Msg("Transcription complete")

	// Cache right away so a summarization failure never costs a second
	// transcription.
	if err := s.cache.Save(ctx, cache.Entry{
		CacheKey:        cacheKey,
		Filename:        filename,
		DurationMinutes: durationMinutes,
		Transcript:      transcript,
	}); err != nil {
		s.procLogger.Warn().Err(err).Str("cache_key", cacheKey).Msg("Failed to cache transcript")
	}
	s.processor.Cleanup(audioPath)

	summary, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		s.procLogger.Warn().Err(err).Str("cache_key", cacheKey).Msg("Summarization failed, transcript is cached")
		return &ProcessResult{
			Status:           "partial",
			Stage:            "summarization_failed",
			OriginalFilename: filename,
			DurationMinutes:  durationMinutes,
			Transcript:       transcript,
			CacheKey:         cacheKey,
			Error:            err.Error(),
			Message:          retryMessage,
		}, nil
	}
	s.procLogger.Info().Msg("Summary generated")

	if _, err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.procLogger.Warn().Err(err).Str("cache_key", cacheKey).Msg("Failed to delete cache entry")
	}

	if userID != "" {
		s.settle(ctx, userID, filename, durationMinutes, float64(len(content))/(1024*1024), transcript, summary)
	}

	return &ProcessResult{
		Status:           "success",
		OriginalFilename: filename,
		DurationMinutes:  durationMinutes,
		Transcript:       transcript,
		Summary:          summary,
	}, nil
}

// settle saves the recording and deducts credits. Failures only log; the
// user already has their result and must not lose it over bookkeeping.
func (s *processingService) settle(ctx context.Context, userID, filename string, durationMinutes, fileSizeMB float64, transcript string, summary *model.Summary) {
	duration := int(durationMinutes)
	rec := &model.Recording{
		UserID:          userID,
		Filename:        filename,
		DurationMinutes: duration,
		FileSizeMB:      fileSizeMB,
		CreditsUsed:     pricing.CreditsRequired(duration),
		Transcript:      transcript,
		Summary:         *summary,
	}

	var recordingID *string
	if err := s.recordingRepo.Create(ctx, rec); err != nil {
		s.procLogger.Warn().Err(err).Str("user_id", userID).Msg("Failed to save recording to history")
	} else {
		recordingID = &rec.ID
		s.procLogger.Info().Str("recording_id", rec.ID).Str("user_id", userID).Msg("Recording saved")
	}

	if _, _, err := s.credits.Deduct(ctx, userID, duration, filename, recordingID); err != nil {
		s.procLogger.Warn().Err(err).Str("user_id", userID).Msg("Failed to deduct credits")
	}
}

func (s *processingService) RetrySummary(ctx context.Context, cacheKey string) (*ProcessResult, error) {
	entry, err := s.cache.Get(ctx, cacheKey)
	if errors.Is(err, cache.ErrCacheNotFound) {
		return nil, cache.ErrCacheNotFound
	}
	if err != nil {
		return nil, err
	}

	s.procLogger.Info().Str("filename", entry.Filename).Msg("Retrying summarization from cache")
	summary, err := s.summarizer.Summarize(ctx, entry.Transcript)
	if err != nil {
		s.procLogger.Error().Err(err).Str("cache_key", cacheKey).Msg("Retry summarization failed")
		return nil, &PipelineError{Stage: StageSummarization, Detail: err.Error()}
	}

	if _, err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.procLogger.Warn().Err(err).Str("cache_key", cacheKey).Msg("Failed to delete cache entry after retry")
	}

	return &ProcessResult{
		Status:           "success",
		OriginalFilename: entry.Filename,
		DurationMinutes:  entry.DurationMinutes,
		Transcript:       entry.Transcript,
		Summary:          summary,
	}, nil
}

func (s *processingService) ListCachedTranscripts(ctx context.Context) ([]cache.Entry, error) {
	return s.cache.List(ctx)
}

func (s *processingService) DeleteCache(ctx context.Context, cacheKey string) (bool, error) {
	return s.cache.Delete(ctx, cacheKey)
}

func (s *processingService) validate(filename string, sizeBytes int64) error {
	if strings.TrimSpace(filename) == "" {
		return &PipelineError{Stage: StageInvalidFilename, Detail: "Nama file tidak valid"}
	}
	if !media.IsAllowed(filename) {
		return &PipelineError{
			Stage:  StageUnsupportedFormat,
			Detail: fmt.Sprintf("Format file tidak didukung. Format yang didukung: %s", strings.Join(media.AllowedExtensions(), ", ")),
		}
	}
	if sizeBytes > s.maxFileBytes {
		return &PipelineError{
			Stage: StageFileTooLarge,
			Detail: fmt.Sprintf("File terlalu besar. Maksimal %dMB, file Anda: %.1fMB",
				s.maxFileBytes/(1024*1024), float64(sizeBytes)/(1024*1024)),
		}
	}
	return nil
}

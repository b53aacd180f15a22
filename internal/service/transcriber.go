package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const openAIBaseURL = "https://api.openai.com/v1"

// Transcriber converts normalized audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type whisperTranscriber struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	language    string
	transLogger zerolog.Logger
}

// NewWhisperTranscriber creates a Transcriber backed by the OpenAI audio
// transcriptions endpoint.
func NewWhisperTranscriber(apiKey, model, language string, logger zerolog.Logger) Transcriber {
	return &whisperTranscriber{
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		baseURL:     openAIBaseURL,
		apiKey:      apiKey,
		model:       model,
		language:    language,
		transLogger: logger.With().Str("service", "Transcriber").Logger(),
	}
}

// NewWhisperTranscriberWithBaseURL is like NewWhisperTranscriber but talks
// to a custom endpoint. Used by tests.
func NewWhisperTranscriberWithBaseURL(baseURL, apiKey, model, language string, logger zerolog.Logger) Transcriber {
	t := NewWhisperTranscriber(apiKey, model, language, logger).(*whisperTranscriber)
	t.baseURL = baseURL
	return t
}

func (t *whisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY tidak dikonfigurasi. Silakan tambahkan API key di file .env")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("audio file not found: %s", audioPath)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	_ = writer.WriteField("model", t.model)
	_ = writer.WriteField("language", t.language)
	_ = writer.WriteField("response_format", "text")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.transLogger.Error().Err(err).Msg("Transcription request failed")
		return "", fmt.Errorf("Gagal melakukan transkripsi: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("Gagal melakukan transkripsi: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.transLogger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("Transcription API error")
		return "", apiError("transkripsi", resp.StatusCode, string(respBody))
	}

	transcript := strings.TrimSpace(string(respBody))
	if transcript == "" {
		return "", fmt.Errorf("Transkripsi kosong. Pastikan file audio memiliki suara yang jelas.")
	}
	return transcript, nil
}

// apiError maps well-known upstream failures to the messages users see.
func apiError(operation string, status int, body string) error {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "invalid_api_key"):
		return fmt.Errorf("API key tidak valid. Silakan periksa kembali.")
	case strings.Contains(lower, "rate_limit"):
		return fmt.Errorf("Rate limit tercapai. Silakan coba lagi nanti.")
	case strings.Contains(lower, "insufficient_quota"):
		return fmt.Errorf("Kuota habis. Silakan periksa billing account Anda.")
	default:
		return fmt.Errorf("Gagal melakukan %s: HTTP %d", operation, status)
	}
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Transcripts beyond this are truncated before summarization to stay
// within the model's context window.
const maxTranscriptChars = 30000

const summarySystemPrompt = `Anda adalah asisten AI yang ahli dalam meringkas transkrip meeting dalam Bahasa Indonesia.

Tugas Anda adalah menganalisis transkrip meeting dan menghasilkan ringkasan terstruktur.

PENTING: Anda HARUS mengembalikan output dalam format JSON yang valid dengan struktur berikut:
{
    "ringkasan_singkat": "Ringkasan singkat dalam 2-3 kalimat tentang inti pembahasan meeting",
    "poin_penting": [
        "Poin penting pertama",
        "Poin penting kedua",
        "Dan seterusnya..."
    ],
    "action_items": [
        "Nama: Tugas yang harus dikerjakan beserta deadline jika ada",
        "Nama: Tugas lainnya"
    ]
}

Jika tidak ada action items yang jelas, berikan array kosong [].
Pastikan output adalah JSON yang valid tanpa teks tambahan sebelum atau sesudahnya.`

const summaryUserPromptTemplate = `Berikut adalah transkrip meeting yang perlu diringkas:

---
%s
---

Silakan buat ringkasan dalam format JSON yang diminta.`

// Summarizer turns a transcript into a structured summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*model.Summary, error)
}

type groqSummarizer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	sumLogger  zerolog.Logger
}

// NewGroqSummarizer creates a Summarizer backed by the Groq chat
// completions endpoint.
func NewGroqSummarizer(apiKey, model string, logger zerolog.Logger) Summarizer {
	return &groqSummarizer{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    groqBaseURL,
		apiKey:     apiKey,
		model:      model,
		sumLogger:  logger.With().Str("service", "Summarizer").Logger(),
	}
}

// NewGroqSummarizerWithBaseURL is like NewGroqSummarizer but talks to a
// custom endpoint. Used by tests.
func NewGroqSummarizerWithBaseURL(baseURL, apiKey, model string, logger zerolog.Logger) Summarizer {
	s := NewGroqSummarizer(apiKey, model, logger).(*groqSummarizer)
	s.baseURL = baseURL
	return s
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *groqSummarizer) Summarize(ctx context.Context, transcript string) (*model.Summary, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("Transkrip kosong, tidak dapat membuat ringkasan")
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY tidak dikonfigurasi. Silakan tambahkan API key di file .env")
	}

	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars] + "... [teks dipotong karena terlalu panjang]"
	}

	payload, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: fmt.Sprintf(summaryUserPromptTemplate, transcript)},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("build summarization request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build summarization request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.sumLogger.Error().Err(err).Msg("Summarization request failed")
		return nil, fmt.Errorf("Gagal membuat ringkasan: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Gagal membuat ringkasan: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.sumLogger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("Summarization API error")
		return nil, apiError("ringkasan", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("Gagal membuat ringkasan: %v", err)
	}
	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("Respons dari AI kosong")
	}

	summary := ParseSummaryResponse(chat.Choices[0].Message.Content)
	return summary, nil
}

var (
	jsonObjectPattern    = regexp.MustCompile(`\{[\s\S]*\}`)
	jsonCodeBlockPattern = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	anyCodeBlockPattern  = regexp.MustCompile("```\\s*([\\s\\S]*?)\\s*```")
)

// ParseSummaryResponse extracts the structured summary from a model
// response. Models do not always honor the JSON-only instruction, so it
// tries progressively looser extractions and falls back to wrapping the
// raw text rather than failing.
func ParseSummaryResponse(responseText string) *model.Summary {
	if summary, ok := decodeSummary(responseText); ok {
		return summary
	}

	candidates := jsonObjectPattern.FindAllString(responseText, -1)
	for _, p := range []*regexp.Regexp{jsonCodeBlockPattern, anyCodeBlockPattern} {
		for _, m := range p.FindAllStringSubmatch(responseText, -1) {
			candidates = append(candidates, m[1])
		}
	}
	for _, candidate := range candidates {
		cleaned := strings.TrimSpace(candidate)
		if !strings.HasPrefix(cleaned, "{") {
			continue
		}
		if summary, ok := decodeSummary(cleaned); ok {
			return summary
		}
	}

	// Nothing parseable: keep the raw text as the short summary so the
	// user still gets something readable.
	text := responseText
	if len(text) > 500 {
		text = text[:500]
	}
	return &model.Summary{
		RingkasanSingkat: text,
		PoinPenting:      []string{"Tidak dapat mengekstrak poin penting secara otomatis"},
		ActionItems:      []string{},
	}
}

// decodeSummary parses a JSON candidate and backfills missing keys.
func decodeSummary(text string) (*model.Summary, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}

	summary := &model.Summary{
		PoinPenting: []string{},
		ActionItems: []string{},
	}
	if v, ok := raw["ringkasan_singkat"]; ok {
		_ = json.Unmarshal(v, &summary.RingkasanSingkat)
	} else {
		summary.RingkasanSingkat = "Ringkasan tidak tersedia"
	}
	if v, ok := raw["poin_penting"]; ok {
		_ = json.Unmarshal(v, &summary.PoinPenting)
	}
	if v, ok := raw["action_items"]; ok {
		_ = json.Unmarshal(v, &summary.ActionItems)
	}
	if summary.PoinPenting == nil {
		summary.PoinPenting = []string{}
	}
	if summary.ActionItems == nil {
		summary.ActionItems = []string{}
	}
	return summary, true
}

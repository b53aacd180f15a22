package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"app/internal/model"
)

// Response is the backend's processing result, success or partial.
type Response struct {
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

// Balance is the subset of the balance endpoint the orchestrator needs.
type Balance struct {
	PaidCredits  int `json:"paid_credits"`
	FreeCredits  int `json:"free_credits"`
	TotalCredits int `json:"total_credits"`
	MaxDuration  int `json:"max_duration"`
}

// BackendError is a non-2xx backend reply, detail preserved verbatim.
type BackendError struct {
	Code   int
	Detail string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server returned status %d", e.Code)
}

// Client talks to the processing backend.
type Client interface {
	Process(ctx context.Context, filename string, content []byte) (*Response, error)
	RetrySummary(ctx context.Context, cacheKey string) (*Response, error)
	Balance(ctx context.Context) (*Balance, error)
}

type httpClient struct {
	baseURL string
	userID  string
	client  *http.Client
}

// NewClient creates an HTTP Client for the given backend and user.
func NewClient(baseURL, userID string) Client {
	return &httpClient{
		baseURL: baseURL,
		userID:  userID,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *httpClient) Process(ctx context.Context, filename string, content []byte) (*Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}

	endpoint := c.baseURL + "/api/process"
	if c.userID != "" {
		endpoint += "?user_id=" + url.QueryEscape(c.userID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doProcessing(req)
}

func (c *httpClient) RetrySummary(ctx context.Context, cacheKey string) (*Response, error) {
	payload, err := json.Marshal(map[string]string{"cache_key": cacheKey})
	if err != nil {
		return nil, fmt.Errorf("build retry request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/retry-summary", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build retry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doProcessing(req)
}

func (c *httpClient) Balance(ctx context.Context) (*Balance, error) {
	endpoint := c.baseURL + "/api/credits/balance?user_id=" + url.QueryEscape(c.userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build balance request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeBackendError(resp.StatusCode, raw)
	}
	var balance Balance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	return &balance, nil
}

func (c *httpClient) doProcessing(req *http.Request) (*Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call backend: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, decodeBackendError(resp.StatusCode, raw)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	return &out, nil
}

func decodeBackendError(code int, raw []byte) error {
	var envelope struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(raw, &envelope)
	detail := envelope.Error
	if detail == "" {
		detail = envelope.Detail
	}
	return &BackendError{Code: code, Detail: detail}
}

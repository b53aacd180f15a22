package orchestrator

import (
	"context"
	"errors"
	"testing"

	"app/internal/logger"
	"app/internal/model"
)

// fakeClient serves scripted backend replies and counts calls.
type fakeClient struct {
	processResp *Response
	processErr  error
	retryResp   *Response
	retryErr    error
	balance     Balance

	processCalls int
	retryCalls   int
	balanceCalls int
	lastCacheKey string
}

func (f *fakeClient) Process(_ context.Context, _ string, _ []byte) (*Response, error) {
	f.processCalls++
	return f.processResp, f.processErr
}

func (f *fakeClient) RetrySummary(_ context.Context, cacheKey string) (*Response, error) {
	f.retryCalls++
	f.lastCacheKey = cacheKey
	return f.retryResp, f.retryErr
}

func (f *fakeClient) Balance(_ context.Context) (*Balance, error) {
	f.balanceCalls++
	b := f.balance
	return &b, nil
}

type fakeProbe struct {
	minutes float64
	ok      bool
}

func (f *fakeProbe) Probe(_ context.Context, _ string) (float64, bool) {
	return f.minutes, f.ok
}

func successResponse() *Response {
	return &Response{
		Status:           "success",
		OriginalFilename: "standup.mp3",
		DurationMinutes:  12.5,
		Transcript:       "rapat dimulai",
		Summary: &model.Summary{
			RingkasanSingkat: "Standup pagi",
			PoinPenting:      []string{"sprint berjalan lancar"},
			ActionItems:      []string{"follow up deployment"},
		},
	}
}

func partialResponse() *Response {
	return &Response{
		Status:           "partial",
		Stage:            "summarization_failed",
		OriginalFilename: "standup.mp3",
		DurationMinutes:  12.5,
		Transcript:       "rapat dimulai",
		CacheKey:         "a1b2c3d4e5f60718",
		Error:            "Rate limit tercapai. Tunggu beberapa saat dan coba lagi.",
		Message:          "Transkripsi berhasil! Gunakan cache_key untuk retry summarization tanpa biaya transkripsi.",
	}
}

func newTestOrchestrator(t *testing.T, client *fakeClient, probe DurationProbe) *Orchestrator {
	t.Helper()
	o := New(client, probe, logger.New())
	if _, err := o.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance returned error: %v", err)
	}
	client.balanceCalls = 0
	return o
}

func TestUploadSuccessCompletesSession(t *testing.T) {
	client := &fakeClient{
		processResp: successResponse(),
		balance:     Balance{FreeCredits: 2, TotalCredits: 2, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, nil)

	session, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	done, ok := session.Outcome.(Completed)
	if !ok {
		t.Fatalf("expected Completed outcome, got %T", session.Outcome)
	}
	if done.Summary.RingkasanSingkat != "Standup pagi" {
		t.Errorf("unexpected summary: %+v", done.Summary)
	}
	if client.balanceCalls != 1 {
		t.Errorf("success must refresh the balance exactly once, got %d calls", client.balanceCalls)
	}
	if len(o.Sessions()) != 1 {
		t.Errorf("expected one session, got %d", len(o.Sessions()))
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	client := &fakeClient{balance: Balance{TotalCredits: 2, MaxDuration: 20}}
	o := newTestOrchestrator(t, client, nil)

	_, err := o.Upload(context.Background(), "/tmp/notes.pdf", "notes.pdf", []byte("pdf"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if len(o.Sessions()) != 0 {
		t.Error("validation failures must not create sessions")
	}
	if client.processCalls != 0 {
		t.Error("backend must not be called for invalid files")
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	client := &fakeClient{balance: Balance{TotalCredits: 2, MaxDuration: 20}}
	o := newTestOrchestrator(t, client, nil)

	big := make([]byte, maxUploadBytes+1)
	_, err := o.Upload(context.Background(), "/tmp/big.mp3", "big.mp3", big)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestUploadRejectsWithoutCredits(t *testing.T) {
	client := &fakeClient{balance: Balance{TotalCredits: 0, MaxDuration: 20}}
	o := newTestOrchestrator(t, client, nil)

	_, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
}

func TestUploadRejectsWhenDurationExceedsPlan(t *testing.T) {
	client := &fakeClient{balance: Balance{TotalCredits: 5, MaxDuration: 20}}
	o := newTestOrchestrator(t, client, &fakeProbe{minutes: 35, ok: true})

	_, err := o.Upload(context.Background(), "/tmp/allhands.mp4", "allhands.mp4", []byte("video"))
	if !errors.Is(err, ErrDurationExceeded) {
		t.Fatalf("expected ErrDurationExceeded, got %v", err)
	}
}

func TestUploadAllowsUnknownDuration(t *testing.T) {
	client := &fakeClient{
		processResp: successResponse(),
		balance:     Balance{TotalCredits: 5, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, &fakeProbe{ok: false})

	if _, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio")); err != nil {
		t.Fatalf("an unknown duration must not block the upload: %v", err)
	}
}

func TestUploadPartialFailureKeepsCacheKey(t *testing.T) {
	client := &fakeClient{
		processResp: partialResponse(),
		balance:     Balance{TotalCredits: 2, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, nil)

	session, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	partial, ok := session.Outcome.(PartialFailure)
	if !ok {
		t.Fatalf("expected PartialFailure outcome, got %T", session.Outcome)
	}
	if partial.CacheKey != "a1b2c3d4e5f60718" {
		t.Errorf("cache key must be preserved, got %q", partial.CacheKey)
	}
	if partial.Transcript != "rapat dimulai" {
		t.Errorf("transcript must be preserved, got %q", partial.Transcript)
	}
	if client.balanceCalls != 0 {
		t.Error("partial failures must not refresh the balance")
	}
}

func TestUploadBackendErrorPreservesDetail(t *testing.T) {
	client := &fakeClient{
		processErr: &BackendError{Code: 502, Detail: "Rate limit tercapai. Tunggu beberapa saat dan coba lagi."},
		balance:    Balance{TotalCredits: 2, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, nil)

	session, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	hard, ok := session.Outcome.(HardFailure)
	if !ok {
		t.Fatalf("expected HardFailure outcome, got %T", session.Outcome)
	}
	if hard.Error != "Rate limit tercapai. Tunggu beberapa saat dan coba lagi." {
		t.Errorf("backend detail must be kept verbatim, got %q", hard.Error)
	}
}

func TestUploadSingleInFlight(t *testing.T) {
	client := &fakeClient{balance: Balance{TotalCredits: 2, MaxDuration: 20}}
	o := newTestOrchestrator(t, client, nil)

	o.mu.Lock()
	o.inFlight = true
	o.mu.Unlock()

	_, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("expected ErrUploadInFlight, got %v", err)
	}
}

func TestRetryReplacesPartialWithCompleted(t *testing.T) {
	client := &fakeClient{
		processResp: partialResponse(),
		retryResp:   successResponse(),
		balance:     Balance{TotalCredits: 2, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, nil)

	session, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	retried, err := o.Retry(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if _, ok := retried.Outcome.(Completed); !ok {
		t.Fatalf("expected Completed after retry, got %T", retried.Outcome)
	}
	if client.lastCacheKey != "a1b2c3d4e5f60718" {
		t.Errorf("retry must send the stored cache key, got %q", client.lastCacheKey)
	}
	if client.processCalls != 1 {
		t.Error("retry must not re-upload the file")
	}
}

func TestRetryFailureKeepsPartialOutcome(t *testing.T) {
	client := &fakeClient{
		processResp: partialResponse(),
		retryErr:    &BackendError{Code: 502, Detail: "Rate limit tercapai. Tunggu beberapa saat dan coba lagi."},
		balance:     Balance{TotalCredits: 2, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, nil)

	session, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	retried, err := o.Retry(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	partial, ok := retried.Outcome.(PartialFailure)
	if !ok {
		t.Fatalf("failed retry must keep the partial outcome, got %T", retried.Outcome)
	}
	if partial.CacheKey != "a1b2c3d4e5f60718" {
		t.Error("failed retry must keep the cache key for another attempt")
	}

	// A second retry is still possible.
	client.retryErr = nil
	client.retryResp = successResponse()
	retried, err = o.Retry(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("second Retry returned error: %v", err)
	}
	if _, ok := retried.Outcome.(Completed); !ok {
		t.Fatalf("expected Completed after second retry, got %T", retried.Outcome)
	}
}

func TestRetryRejectsCompletedSessions(t *testing.T) {
	client := &fakeClient{
		processResp: successResponse(),
		balance:     Balance{TotalCredits: 2, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, nil)

	session, err := o.Upload(context.Background(), "/tmp/standup.mp3", "standup.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if _, err := o.Retry(context.Background(), session.ID); !errors.Is(err, ErrRetryUnavailable) {
		t.Fatalf("expected ErrRetryUnavailable, got %v", err)
	}
}

func TestRetryUnknownSession(t *testing.T) {
	client := &fakeClient{balance: Balance{TotalCredits: 2, MaxDuration: 20}}
	o := newTestOrchestrator(t, client, nil)

	if _, err := o.Retry(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionsKeepCreationOrder(t *testing.T) {
	client := &fakeClient{
		processResp: successResponse(),
		balance:     Balance{TotalCredits: 5, MaxDuration: 20},
	}
	o := newTestOrchestrator(t, client, nil)

	first, _ := o.Upload(context.Background(), "/tmp/a.mp3", "a.mp3", []byte("a"))
	second, _ := o.Upload(context.Background(), "/tmp/b.mp3", "b.mp3", []byte("b"))

	sessions := o.Sessions()
	if len(sessions) != 2 || sessions[0].ID != first.ID || sessions[1].ID != second.ID {
		t.Errorf("sessions out of order: %+v", sessions)
	}
	if got := o.Session(second.ID); got == nil || got.Filename != "b.mp3" {
		t.Errorf("session lookup failed: %+v", got)
	}
}

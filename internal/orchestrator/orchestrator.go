package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"app/internal/media"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Upload size ceiling mirrors the backend's default.
const maxUploadBytes = 50 * 1024 * 1024

// Pre-submission validation failures, in the order they are checked.
var (
	ErrUnsupportedFormat   = errors.New("format file tidak didukung")
	ErrFileTooLarge        = errors.New("file melebihi 50MB")
	ErrInsufficientCredits = errors.New("credit tidak cukup")
	ErrDurationExceeded    = errors.New("durasi melebihi batas paket")
	ErrUploadInFlight      = errors.New("masih ada upload yang sedang diproses")
	ErrRetryUnavailable    = errors.New("sesi ini tidak punya cache key untuk retry")
	ErrSessionNotFound     = errors.New("sesi tidak ditemukan")
)

const fallbackFailureMessage = "Terjadi kesalahan saat memproses file. Silakan coba lagi."

// Orchestrator owns upload sessions: it validates files locally, submits
// them, records outcomes and handles summarization retries. At most one
// session is processing at a time.
type Orchestrator struct {
	client Client
	probe  DurationProbe
	logger zerolog.Logger

	mu       sync.Mutex
	sessions []*Session
	inFlight bool
	balance  *Balance
}

// New creates an Orchestrator. probe may be nil when no local toolchain
// is available; duration validation is then skipped.
func New(client Client, probe DurationProbe, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		probe:  probe,
		logger: logger.With().Str("component", "orchestrator").Logger(),
	}
}

// RefreshBalance fetches the current balance used by pre-submission
// validation.
func (o *Orchestrator) RefreshBalance(ctx context.Context) (*Balance, error) {
	balance, err := o.client.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh balance: %w", err)
	}
	o.mu.Lock()
	o.balance = balance
	o.mu.Unlock()
	return balance, nil
}

// Balance returns the last fetched balance, nil if never fetched.
func (o *Orchestrator) Balance() *Balance {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.balance
}

// Upload validates the file, creates a session and submits it. The call
// blocks until the backend answers; the returned session carries the
// outcome. No session is created when validation fails.
func (o *Orchestrator) Upload(ctx context.Context, path, filename string, content []byte) (*Session, error) {
	if err := o.validate(ctx, path, filename, int64(len(content))); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	session := &Session{
		ID:        uuid.NewString(),
		Filename:  filename,
		SizeBytes: int64(len(content)),
		CreatedAt: time.Now(),
	}
	o.sessions = append(o.sessions, session)
	o.inFlight = true
	o.mu.Unlock()

	resp, err := o.client.Process(ctx, filename, content)

	o.mu.Lock()
	o.inFlight = false
	session.Outcome = outcomeFor(resp, err)
	_, completed := session.Outcome.(Completed)
	o.mu.Unlock()

	if completed {
		// One refresh per success; the balance changed server-side.
		if _, err := o.RefreshBalance(ctx); err != nil {
			o.logger.Warn().Err(err).Msg("Balance refresh after upload failed")
		}
	}
	return session, nil
}

// Retry re-runs summarization for a partially failed session. Retries are
// free; the backend reuses the cached transcript.
func (o *Orchestrator) Retry(ctx context.Context, sessionID string) (*Session, error) {
	o.mu.Lock()
	session := o.find(sessionID)
	if session == nil {
		o.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	partial, ok := session.Outcome.(PartialFailure)
	if !ok || partial.CacheKey == "" {
		o.mu.Unlock()
		return nil, ErrRetryUnavailable
	}
	o.mu.Unlock()

	resp, err := o.client.RetrySummary(ctx, partial.CacheKey)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		// Keep the partial outcome so the retry stays available.
		partial.Error = failureDetail(err)
		session.Outcome = partial
		return session, nil
	}
	session.Outcome = outcomeFor(resp, nil)
	return session, nil
}

// Sessions returns all sessions in creation order.
func (o *Orchestrator) Sessions() []*Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Session, len(o.sessions))
	copy(out, o.sessions)
	return out
}

// Session returns the session with the given ID, nil if unknown.
func (o *Orchestrator) Session(id string) *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.find(id)
}

func (o *Orchestrator) find(id string) *Session {
	for _, s := range o.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (o *Orchestrator) validate(ctx context.Context, path, filename string, sizeBytes int64) error {
	if !media.IsAllowed(filename) {
		return ErrUnsupportedFormat
	}
	if sizeBytes > maxUploadBytes {
		return ErrFileTooLarge
	}

	o.mu.Lock()
	balance := o.balance
	o.mu.Unlock()
	if balance != nil && balance.TotalCredits < 1 {
		return ErrInsufficientCredits
	}

	// Best effort: an unknown duration never blocks the upload.
	if o.probe != nil && balance != nil && balance.MaxDuration > 0 {
		if minutes, ok := o.probe.Probe(ctx, path); ok && minutes > float64(balance.MaxDuration) {
			return ErrDurationExceeded
		}
	}
	return nil
}

// outcomeFor maps a backend reply to a session outcome.
func outcomeFor(resp *Response, err error) Outcome {
	if err != nil {
		return HardFailure{Error: failureDetail(err)}
	}
	switch resp.Status {
	case "success":
		summary := resp.Summary
		if summary == nil {
			return HardFailure{Error: fallbackFailureMessage}
		}
		return Completed{
			OriginalFilename: resp.OriginalFilename,
			DurationMinutes:  resp.DurationMinutes,
			Transcript:       resp.Transcript,
			Summary:          *summary,
		}
	case "partial":
		return PartialFailure{
			OriginalFilename: resp.OriginalFilename,
			DurationMinutes:  resp.DurationMinutes,
			Transcript:       resp.Transcript,
			CacheKey:         resp.CacheKey,
			Error:            resp.Error,
			Message:          resp.Message,
		}
	default:
		return HardFailure{Error: fallbackFailureMessage}
	}
}

func failureDetail(err error) string {
	var be *BackendError
	if errors.As(err, &be) && be.Detail != "" {
		return be.Detail
	}
	if err != nil {
		return err.Error()
	}
	return fallbackFailureMessage
}

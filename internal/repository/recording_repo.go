package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordingRepository accesses processed recordings. The summary column is
// JSONB; marshalling happens here so callers only see model.Summary.
type RecordingRepository interface {
	Create(ctx context.Context, rec *model.Recording) error
	GetByID(ctx context.Context, recordingID, userID string) (*model.Recording, error)
	// ListByUser returns a user's recordings, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Recording, error)
}

type recordingRepo struct {
	pool *pgxpool.Pool
}

// NewRecordingRepo creates a new RecordingRepository.
func NewRecordingRepo(pool *pgxpool.Pool) RecordingRepository {
	return &recordingRepo{pool: pool}
}

func (r *recordingRepo) Create(ctx context.Context, rec *model.Recording) error {
	summaryJSON, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	const q = `
        INSERT INTO recordings (user_id, filename, duration_minutes, file_size_mb, credits_used, transcript, summary)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	err = r.pool.QueryRow(ctx, q,
		rec.UserID,
		rec.Filename,
		rec.DurationMinutes,
		rec.FileSizeMB,
		rec.CreditsUsed,
		rec.Transcript,
		summaryJSON,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create recording for user %s: %w", rec.UserID, err)
	}
	return nil
}

func (r *recordingRepo) GetByID(ctx context.Context, recordingID, userID string) (*model.Recording, error) {
	const q = `
        SELECT id, user_id, filename, duration_minutes, file_size_mb, credits_used, transcript, summary, created_at
        FROM recordings
        WHERE id = $1 AND user_id = $2
    `
	rec, err := scanRecording(r.pool.QueryRow(ctx, q, recordingID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch recording %s: %w", recordingID, err)
	}
	return rec, nil
}

func (r *recordingRepo) ListByUser(ctx context.Context, userID string) ([]model.Recording, error) {
	const q = `
        SELECT id, user_id, filename, duration_minutes, file_size_mb, credits_used, transcript, summary, created_at
        FROM recordings
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list recordings for user %s: %w", userID, err)
	}
	defer rows.Close()

	var recordings []model.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recordings = append(recordings, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return recordings, nil
}

func scanRecording(row pgx.Row) (*model.Recording, error) {
	var rec model.Recording
	var summaryJSON []byte
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Filename,
		&rec.DurationMinutes,
		&rec.FileSizeMB,
		&rec.CreditsUsed,
		&rec.Transcript,
		&summaryJSON,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &rec.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary for recording %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

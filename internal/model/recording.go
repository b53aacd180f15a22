package model

import "time"

// Summary is the structured summarization result. Field names follow the
// AI prompt contract and are rendered to users verbatim.
type Summary struct {
	RingkasanSingkat string   `json:"ringkasan_singkat"`
	PoinPenting      []string `json:"poin_penting"`
	ActionItems      []string `json:"action_items"`
}

// Recording is a successfully processed meeting file, immutable once saved.
type Recording struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Filename        string    `db:"filename" json:"filename"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	FileSizeMB      float64   `db:"file_size_mb" json:"file_size_mb"`
	CreditsUsed     int       `db:"credits_used" json:"credits_used"`
	Transcript      string    `db:"transcript" json:"transcript"`
	Summary         Summary   `db:"summary" json:"summary"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// UserProfile mirrors the auth provider's user record, read-only here.
type UserProfile struct {
	UserID string `db:"user_id" json:"user_id"`
	Name   string `db:"name" json:"name"`
	Email  string `db:"email" json:"email"`
}

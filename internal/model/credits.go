package model

import "time"

// UserCredits is the per-user credit ledger row.
type UserCredits struct {
	UserID             string    `db:"user_id" json:"user_id"`
	Balance            int       `db:"balance" json:"balance"`
	FreeCredits        int       `db:"free_credits" json:"free_credits"`
	FreeCreditsResetAt time.Time `db:"free_credits_reset_at" json:"free_credits_reset_at"`
	TotalPurchased     int       `db:"total_purchased" json:"total_purchased"`
	TotalUsed          int       `db:"total_used" json:"total_used"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Total returns free plus paid credits.
func (c *UserCredits) Total() int {
	return c.Balance + c.FreeCredits
}

// Credit usage source types.
const (
	CreditTypeFree  = "free"
	CreditTypePaid  = "paid"
	CreditTypeMixed = "mixed"
)

// CreditUsage records a single deduction from the ledger.
type CreditUsage struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	CreditsUsed     int       `db:"credits_used" json:"credits_used"`
	CreditType      string    `db:"credit_type" json:"credit_type"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Filename        string    `db:"filename" json:"filename"`
	RecordingID     *string   `db:"recording_id" json:"recording_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

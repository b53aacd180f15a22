package model

import "time"

// Purchase request statuses. pending is the only non-terminal state.
const (
	PurchaseStatusPending  = "pending"
	PurchaseStatusApproved = "approved"
	PurchaseStatusRejected = "rejected"
)

// CreditPurchase is a manual bank-transfer purchase request awaiting
// admin verification.
type CreditPurchase struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	PackageID     string     `db:"package_id" json:"package_id"`
	Credits       int        `db:"credits" json:"credits"`
	Amount        int        `db:"amount" json:"amount"`
	Status        string     `db:"status" json:"status"`
	ProofURL      string     `db:"proof_url" json:"proof_url"`
	ProofFilename string     `db:"proof_filename" json:"proof_filename"`
	AdminNotes    *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	VerifiedAt    *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedBy    *string    `db:"verified_by" json:"verified_by,omitempty"`

	// Enriched for admin views, not persisted.
	UserEmail string `db:"-" json:"user_email,omitempty"`
	UserName  string `db:"-" json:"user_name,omitempty"`
}

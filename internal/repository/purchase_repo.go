package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const purchaseColumns = `
        id, user_id, package_id, credits, amount, status, proof_url, proof_filename,
        admin_notes, created_at, verified_at, verified_by
`

// PurchaseRepository accesses credit_purchases rows.
type PurchaseRepository interface {
	Create(ctx context.Context, p *model.CreditPurchase) error
	GetByID(ctx context.Context, purchaseID string) (*model.CreditPurchase, error)
	// ListPending returns all pending requests, newest first.
	ListPending(ctx context.Context) ([]model.CreditPurchase, error)
	// ListByUser returns a user's purchase history, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.CreditPurchase, error)
	// ListVerified returns settled requests, most recently verified first.
	ListVerified(ctx context.Context, limit int) ([]model.CreditPurchase, error)
	// MarkVerified moves a pending purchase to approved or rejected. The
	// status filter in the WHERE clause makes a second verification of the
	// same purchase a no-op; found reports whether a row was updated.
	MarkVerified(ctx context.Context, purchaseID, status, verifiedBy string, notes *string) (found bool, err error)
	// ApprovedPackageIDs returns the distinct package IDs this user has had
	// approved, for tier resolution.
	ApprovedPackageIDs(ctx context.Context, userID string) ([]string, error)
}

type purchaseRepo struct {
	pool *pgxpool.Pool
}

// NewPurchaseRepo creates a new PurchaseRepository.
func NewPurchaseRepo(pool *pgxpool.Pool) PurchaseRepository {
	return &purchaseRepo{pool: pool}
}

func (r *purchaseRepo) Create(ctx context.Context, p *model.CreditPurchase) error {
	const q = `
        INSERT INTO credit_purchases (user_id, package_id, credits, amount, status, proof_url, proof_filename)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, q,
		p.UserID,
		p.PackageID,
		p.Credits,
		p.Amount,
		p.Status,
		p.ProofURL,
		p.ProofFilename,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create purchase for user %s: %w", p.UserID, err)
	}
	return nil
}

func (r *purchaseRepo) GetByID(ctx context.Context, purchaseID string) (*model.CreditPurchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM credit_purchases WHERE id = $1`
	p, err := scanPurchase(r.pool.QueryRow(ctx, q, purchaseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch purchase %s: %w", purchaseID, err)
	}
	return p, nil
}

func (r *purchaseRepo) ListPending(ctx context.Context) ([]model.CreditPurchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM credit_purchases WHERE status = 'pending' ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list pending purchases: %w", err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (r *purchaseRepo) ListByUser(ctx context.Context, userID string) ([]model.CreditPurchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM credit_purchases WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases for user %s: %w", userID, err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (r *purchaseRepo) ListVerified(ctx context.Context, limit int) ([]model.CreditPurchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM credit_purchases WHERE status <> 'pending' ORDER BY verified_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list verified purchases: %w", err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (r *purchaseRepo) MarkVerified(ctx context.Context, purchaseID, status, verifiedBy string, notes *string) (bool, error) {
	const q = `
        UPDATE credit_purchases
        SET status = $2, verified_at = NOW(), verified_by = $3, admin_notes = $4
        WHERE id = $1 AND status = 'pending'
    `
	tag, err := r.pool.Exec(ctx, q, purchaseID, status, verifiedBy, notes)
	if err != nil {
		return false, fmt.Errorf("verify purchase %s: %w", purchaseID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *purchaseRepo) ApprovedPackageIDs(ctx context.Context, userID string) ([]string, error) {
	const q = `
        SELECT DISTINCT package_id
        FROM credit_purchases
        WHERE user_id = $1 AND status = 'approved'
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list approved packages for user %s: %w", userID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan approved package: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list approved packages for user %s: %w", userID, err)
	}
	return ids, nil
}

func scanPurchase(row pgx.Row) (*model.CreditPurchase, error) {
	var p model.CreditPurchase
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PackageID,
		&p.Credits,
		&p.Amount,
		&p.Status,
		&p.ProofURL,
		&p.ProofFilename,
		&p.AdminNotes,
		&p.CreatedAt,
		&p.VerifiedAt,
		&p.VerifiedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPurchases(rows pgx.Rows) ([]model.CreditPurchase, error) {
	var purchases []model.CreditPurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return purchases, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreditsRepository accesses the user_credits ledger and credit_usage log.
type CreditsRepository interface {
	GetCredits(ctx context.Context, userID string) (*model.UserCredits, error)
	// CreateDefaultCredits inserts the initial row for a new user with the
	// weekly free allotment. No-op if the row already exists.
	CreateDefaultCredits(ctx context.Context, userID string, freeCredits int) (*model.UserCredits, error)
	// ResetFreeCredits restores free credits to the allotment and stamps the
	// reset timestamp.
	ResetFreeCredits(ctx context.Context, userID string, freeCredits int) error
	// ApplyDeduction writes the post-deduction free/paid balances and bumps
	// total_used.
	ApplyDeduction(ctx context.Context, userID string, newFree, newBalance, creditsUsed int) error
	// AddPurchasedCredits raises the paid balance and total_purchased.
	AddPurchasedCredits(ctx context.Context, userID string, credits int) error
	RecordUsage(ctx context.Context, usage *model.CreditUsage) error
}

type creditsRepo struct {
	pool *pgxpool.Pool
}

// NewCreditsRepo creates a new CreditsRepository.
func NewCreditsRepo(pool *pgxpool.Pool) CreditsRepository {
	return &creditsRepo{pool: pool}
}

func (r *creditsRepo) GetCredits(ctx context.Context, userID string) (*model.UserCredits, error) {
	const q = `
        SELECT user_id, balance, free_credits, free_credits_reset_at, total_purchased, total_used, updated_at
        FROM user_credits
        WHERE user_id = $1
    `
	var c model.UserCredits
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&c.UserID,
		&c.Balance,
		&c.FreeCredits,
		&c.FreeCreditsResetAt,
		&c.TotalPurchased,
		&c.TotalUsed,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch credits for user %s: %w", userID, err)
	}
	return &c, nil
}

func (r *creditsRepo) CreateDefaultCredits(ctx context.Context, userID string, freeCredits int) (*model.UserCredits, error) {
	const q = `
        INSERT INTO user_credits (user_id, balance, free_credits, free_credits_reset_at, total_purchased, total_used, updated_at)
        VALUES ($1, 0, $2, NOW(), 0, 0, NOW())
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, userID, freeCredits); err != nil {
		return nil, fmt.Errorf("create default credits for user %s: %w", userID, err)
	}
	return r.GetCredits(ctx, userID)
}

func (r *creditsRepo) ResetFreeCredits(ctx context.Context, userID string, freeCredits int) error {
	const q = `
        UPDATE user_credits
        SET free_credits = $2, free_credits_reset_at = NOW(), updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID, freeCredits); err != nil {
		return fmt.Errorf("reset free credits for user %s: %w", userID, err)
	}
	return nil
}

func (r *creditsRepo) ApplyDeduction(ctx context.Context, userID string, newFree, newBalance, creditsUsed int) error {
	const q = `
        UPDATE user_credits
        SET free_credits = $2, balance = $3, total_used = total_used + $4, updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID, newFree, newBalance, creditsUsed); err != nil {
		return fmt.Errorf("apply deduction for user %s: %w", userID, err)
	}
	return nil
}

func (r *creditsRepo) AddPurchasedCredits(ctx context.Context, userID string, credits int) error {
	const q = `
        UPDATE user_credits
        SET balance = balance + $2, total_purchased = total_purchased + $2, updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID, credits); err != nil {
		return fmt.Errorf("add purchased credits for user %s: %w", userID, err)
	}
	return nil
}

func (r *creditsRepo) RecordUsage(ctx context.Context, usage *model.CreditUsage) error {
	const q = `
        INSERT INTO credit_usage (user_id, credits_used, credit_type, duration_minutes, filename, recording_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, q,
		usage.UserID,
		usage.CreditsUsed,
		usage.CreditType,
		usage.DurationMinutes,
		usage.Filename,
		usage.RecordingID,
	).Scan(&usage.ID, &usage.CreatedAt)
	if err != nil {
		return fmt.Errorf("record usage for user %s: %w", usage.UserID, err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository reads user profiles owned by the auth provider. Used only
// to enrich admin views; nothing here writes.
type UserRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	const q = `
        SELECT user_id, name, email
        FROM user_profiles
        WHERE user_id = $1
    `
	var p model.UserProfile
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.Name, &p.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile for user %s: %w", userID, err)
	}
	return &p, nil
}

// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

// Repository reads parties owned by the identity subsystem. The only writes
// are the tier (subscription activation, admin override) and the deal
// counter (escrow settlement).
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateTier(ctx context.Context, id string, tier Tier) error
	IncrementCompletedDeals(ctx context.Context, ids ...string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, name, role, tier, completed_deals_count,
		       created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.Tier = ParseTier(string(user.Tier))
	return &user, nil
}

func (r *repository) UpdateTier(ctx context.Context, id string, tier Tier) error {
	query := `
		UPDATE users
		SET tier = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, string(tier))
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update tier: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) IncrementCompletedDeals(
	ctx context.Context,
	ids ...string,
) error {
	for _, id := range ids {
		query := `
			UPDATE users
			SET completed_deals_count = completed_deals_count + 1, updated_at = NOW()
			WHERE id = $1`

		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("increment completed deals: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("increment completed deals: %w", err)
		}

		if rows == 0 {
			return fmt.Errorf("increment completed deals: %w", core.ErrNotFound)
		}
	}

	return nil
}

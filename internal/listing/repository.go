// AngelaMos | 2026
// repository.go

package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	GetByID(ctx context.Context, id string) (*Listing, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Listing, error)
	MarkSold(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const listingColumns = `
	id, seller_id, title, description, platform, price_cents, status,
	created_at, updated_at`

func (r *repository) Create(ctx context.Context, listing *Listing) error {
	query := `
		INSERT INTO listings (id, seller_id, title, description, platform, price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		listing.ID,
		listing.SellerID,
		listing.Title,
		listing.Description,
		listing.Platform,
		listing.PriceCents,
		string(listing.Status),
	).Scan(&listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Listing, error) {
	return r.get(ctx, `SELECT`+listingColumns+` FROM listings WHERE id = $1`, id)
}

// GetByIDForUpdate row-locks the listing for the rest of the transaction.
func (r *repository) GetByIDForUpdate(ctx context.Context, id string) (*Listing, error) {
	return r.get(ctx, `SELECT`+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) get(ctx context.Context, query, id string) (*Listing, error) {
	var listing Listing
	err := r.db.GetContext(ctx, &listing, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get listing: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return &listing, nil
}

// MarkSold only moves an ACTIVE listing. Zero affected rows means the
// listing changed under the caller.
func (r *repository) MarkSold(ctx context.Context, id string) error {
	query := `
		UPDATE listings
		SET status = 'SOLD', updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark listing sold: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark listing sold: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("mark listing sold: %w", core.ErrInvalidState)
	}

	return nil
}

// UnitOfWork runs fn with a repository bound to one transaction. tx is the
// same transaction, for collaborators that must commit alongside.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(repo Repository, tx core.DBTX) error) error
}

type sqlxUnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlxUnitOfWork{db: db}
}

func (u *sqlxUnitOfWork) Within(
	ctx context.Context,
	fn func(repo Repository, tx core.DBTX) error,
) error {
	return core.InTx(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(NewRepository(tx), tx)
	})
}

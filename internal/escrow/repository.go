// AngelaMos | 2026
// repository.go

package escrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

// Repository never writes the price columns after Create; there is no
// statement that could recompute a locked total.
type Repository interface {
	Create(ctx context.Context, escrow *Escrow) error
	GetByID(ctx context.Context, id string) (*Escrow, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Escrow, error)
	UpdateStatus(ctx context.Context, escrow *Escrow) error
	AppendProof(ctx context.Context, proof *Proof) error
	ListProofs(ctx context.Context, escrowID string) ([]Proof, error)
	ListByStatus(ctx context.Context, statuses []Status, limit int) ([]Escrow, error)
}

type PurchaseRepository interface {
	// CreateIfAbsent reports whether a new settlement row was written.
	CreateIfAbsent(ctx context.Context, purchase *Purchase) (bool, error)
	GetByEscrowID(ctx context.Context, escrowID string) (*Purchase, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const escrowColumns = `
	id, listing_id, buyer_id, seller_id, price_cents, fee_bps, fee_cents,
	min_fee_cents, total_charge_cents, fee_discounts, status, method, provider,
	provider_ref, funded_at, verified_by, verified_at, dispute_reason,
	created_at, updated_at`

func (r *repository) Create(ctx context.Context, e *Escrow) error {
	query := `
		INSERT INTO escrow_transactions (
			id, listing_id, buyer_id, seller_id, price_cents, fee_bps, fee_cents,
			min_fee_cents, total_charge_cents, fee_discounts, status, method,
			provider, provider_ref
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		e.ID,
		e.ListingID,
		e.BuyerID,
		e.SellerID,
		e.PriceCents,
		e.FeeBps,
		e.FeeCents,
		e.MinFeeCents,
		e.TotalChargeCents,
		e.Discounts,
		string(e.Status),
		string(e.Method),
		string(e.Provider),
		e.ProviderRef,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create escrow: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create escrow: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Escrow, error) {
	return r.get(ctx, `SELECT`+escrowColumns+` FROM escrow_transactions WHERE id = $1`, id)
}

// GetByIDForUpdate holds the row lock until the transaction ends, which
// serializes every transition on one escrow.
func (r *repository) GetByIDForUpdate(ctx context.Context, id string) (*Escrow, error) {
	return r.get(ctx, `SELECT`+escrowColumns+` FROM escrow_transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) get(ctx context.Context, query, id string) (*Escrow, error) {
	var e Escrow
	err := r.db.GetContext(ctx, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get escrow: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get escrow: %w", err)
	}
	return &e, nil
}

func (r *repository) UpdateStatus(ctx context.Context, e *Escrow) error {
	query := `
		UPDATE escrow_transactions
		SET status = $2, funded_at = $3, verified_by = $4, verified_at = $5,
		    dispute_reason = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		e.ID,
		string(e.Status),
		e.FundedAt,
		e.VerifiedBy,
		e.VerifiedAt,
		e.DisputeReason,
	).Scan(&e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update escrow status: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update escrow status: %w", err)
	}

	return nil
}

func (r *repository) AppendProof(ctx context.Context, p *Proof) error {
	query := `
		INSERT INTO payment_proofs (id, escrow_id, submitted_by, kind, note, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID,
		p.EscrowID,
		p.SubmittedBy,
		string(p.Kind),
		p.Note,
		p.URL,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("append proof: %w", err)
	}

	return nil
}

func (r *repository) ListProofs(ctx context.Context, escrowID string) ([]Proof, error) {
	query := `
		SELECT id, escrow_id, submitted_by, kind, note, url, created_at
		FROM payment_proofs
		WHERE escrow_id = $1
		ORDER BY created_at ASC, id ASC`

	var proofs []Proof
	if err := r.db.SelectContext(ctx, &proofs, query, escrowID); err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}

	return proofs, nil
}

func (r *repository) ListByStatus(
	ctx context.Context,
	statuses []Status,
	limit int,
) ([]Escrow, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query, args, err := sqlx.In(
		`SELECT`+escrowColumns+`
		FROM escrow_transactions
		WHERE status IN (?)
		ORDER BY created_at ASC
		LIMIT ?`,
		values,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}

	var escrows []Escrow
	if err := r.db.SelectContext(ctx, &escrows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}

	return escrows, nil
}

type purchaseRepository struct {
	db core.DBTX
}

func NewPurchaseRepository(db core.DBTX) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) CreateIfAbsent(ctx context.Context, p *Purchase) (bool, error) {
	query := `
		INSERT INTO purchases (id, escrow_id, listing_id, buyer_id, seller_id, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (escrow_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.EscrowID,
		p.ListingID,
		p.BuyerID,
		p.SellerID,
		p.PriceCents,
	)
	if err != nil {
		return false, fmt.Errorf("create purchase: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create purchase: %w", err)
	}

	return rows == 1, nil
}

func (r *purchaseRepository) GetByEscrowID(ctx context.Context, escrowID string) (*Purchase, error) {
	query := `
		SELECT id, escrow_id, listing_id, buyer_id, seller_id, price_cents, created_at
		FROM purchases
		WHERE escrow_id = $1`

	var p Purchase
	err := r.db.GetContext(ctx, &p, query, escrowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get purchase: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return &p, nil
}

// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

type PlanRepository interface {
	ListActive(ctx context.Context) ([]Plan, error)
	GetByID(ctx context.Context, id string) (*Plan, error)
	GetByName(ctx context.Context, name user.Tier) (*Plan, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByIDForUpdate(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	ListByStatus(ctx context.Context, statuses []Status, limit int) ([]Payment, error)
}

const planColumns = `
	id, name, billing_type, monthly_price_cents, one_time_price_cents,
	listings_per_month, conversations_per_month, is_active, sort_order,
	created_at, updated_at`

type planRepository struct {
	db core.DBTX
}

func NewPlanRepository(db core.DBTX) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) ListActive(ctx context.Context) ([]Plan, error) {
	query := `SELECT` + planColumns + `
		FROM subscription_plans
		WHERE is_active = TRUE
		ORDER BY sort_order ASC, name ASC`

	var plans []Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*Plan, error) {
	return r.get(ctx, `SELECT`+planColumns+` FROM subscription_plans WHERE id = $1`, id)
}

func (r *planRepository) GetByName(ctx context.Context, name user.Tier) (*Plan, error) {
	return r.get(ctx, `SELECT`+planColumns+` FROM subscription_plans WHERE name = $1`, string(name))
}

func (r *planRepository) get(ctx context.Context, query string, arg string) (*Plan, error) {
	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &plan, nil
}

const paymentColumns = `
	p.id, p.user_id, p.plan_id, sp.name AS plan_name, p.method,
	p.total_charge_cents, p.status, p.reference, p.proof_url, p.note,
	p.submitted_at, p.verified_by, p.verified_at, p.created_at, p.updated_at`

const paymentFrom = `
	FROM subscription_payments p
	JOIN subscription_plans sp ON sp.id = p.plan_id`

type paymentRepository struct {
	db core.DBTX
}

func NewPaymentRepository(db core.DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO subscription_payments (id, user_id, plan_id, method, total_charge_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID,
		p.UserID,
		p.PlanID,
		string(p.Method),
		p.TotalChargeCents,
		string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create subscription payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*Payment, error) {
	return r.get(ctx, `SELECT`+paymentColumns+paymentFrom+` WHERE p.id = $1`, id)
}

// GetByIDForUpdate locks only the payment row; plans are read-only here.
func (r *paymentRepository) GetByIDForUpdate(ctx context.Context, id string) (*Payment, error) {
	return r.get(ctx, `SELECT`+paymentColumns+paymentFrom+` WHERE p.id = $1 FOR UPDATE OF p`, id)
}

func (r *paymentRepository) get(ctx context.Context, query, id string) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription payment: %w", err)
	}
	return &p, nil
}

// Update writes the lifecycle columns. The charged total is immutable.
func (r *paymentRepository) Update(ctx context.Context, p *Payment) error {
	query := `
		UPDATE subscription_payments
		SET status = $2, reference = $3, proof_url = $4, note = $5,
		    submitted_at = $6, verified_by = $7, verified_at = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID,
		string(p.Status),
		p.Reference,
		p.ProofURL,
		p.Note,
		p.SubmittedAt,
		p.VerifiedBy,
		p.VerifiedAt,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update subscription payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update subscription payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListByStatus(
	ctx context.Context,
	statuses []Status,
	limit int,
) ([]Payment, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query, args, err := sqlx.In(
		`SELECT`+paymentColumns+paymentFrom+`
		WHERE p.status IN (?)
		ORDER BY p.created_at ASC
		LIMIT ?`,
		values,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscription payments: %w", err)
	}

	var payments []Payment
	if err := r.db.SelectContext(ctx, &payments, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list subscription payments: %w", err)
	}
	return payments, nil
}

// Stores are the repositories one subscription step may touch, bound to
// the same transaction.
type Stores struct {
	Plans    PlanRepository
	Payments PaymentRepository
	Users    user.Repository
}

type UnitOfWork interface {
	Within(ctx context.Context, fn func(stores Stores) error) error
}

type sqlxUnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlxUnitOfWork{db: db}
}

func (u *sqlxUnitOfWork) Within(ctx context.Context, fn func(stores Stores) error) error {
	return core.InTx(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(Stores{
			Plans:    NewPlanRepository(tx),
			Payments: NewPaymentRepository(tx),
			Users:    user.NewRepository(tx),
		})
	})
}

// AngelaMos | 2026
// uow.go

package escrow

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/listing"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

// Stores are the repositories a lifecycle step may touch, all bound to the
// same transaction.
type Stores struct {
	Escrows   Repository
	Purchases PurchaseRepository
	Listings  listing.Repository
	Users     user.Repository
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
			Escrows:   NewRepository(tx),
			Purchases: NewPurchaseRepository(tx),
			Listings:  listing.NewRepository(tx),
			Users:     user.NewRepository(tx),
		})
	})
}

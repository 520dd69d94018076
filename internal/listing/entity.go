// AngelaMos | 2026
// entity.go

package listing

import (
	"time"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusSold     Status = "SOLD"
)

type Listing struct {
	ID          string    `db:"id"`
	SellerID    string    `db:"seller_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Platform    string    `db:"platform"`
	PriceCents  int64     `db:"price_cents"`
	Status      Status    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (l *Listing) IsActive() bool {
	return l.Status == StatusActive
}

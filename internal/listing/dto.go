// AngelaMos | 2026
// dto.go

package listing

import (
	"time"
)

type CreateListingRequest struct {
	Title       string `json:"title"       validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Platform    string `json:"platform"    validate:"required,max=64"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0,lte=100000000000"`
}

type ListingResponse struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Platform    string    `json:"platform"`
	PriceCents  int64     `json:"price_cents"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToListingResponse(l *Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Description: l.Description,
		Platform:    l.Platform,
		PriceCents:  l.PriceCents,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// AngelaMos | 2026
// dto.go

package escrow

import (
	"time"
)

type CreateEscrowRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Method    string `json:"method"     validate:"required,oneof=bank_transfer mobile_money crypto"`
}

type SubmitProofRequest struct {
	Kind string `json:"kind" validate:"required,oneof=SCREENSHOT RECEIPT REFERENCE OTHER"`
	Note string `json:"note" validate:"max=2000"`
	URL  string `json:"url"  validate:"omitempty,url,max=2048"`
}

type RecordFundingRequest struct {
	Status string `json:"status" validate:"required,oneof=FEE_PAID FULLY_PAID"`
}

type DisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=2000"`
}

type ProofResponse struct {
	ID          string    `json:"id"`
	SubmittedBy string    `json:"submitted_by"`
	Kind        ProofKind `json:"kind"`
	Note        *string   `json:"note,omitempty"`
	URL         *string   `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type EscrowResponse struct {
	ID               string          `json:"id"`
	ListingID        string          `json:"listing_id"`
	BuyerID          string          `json:"buyer_id"`
	SellerID         string          `json:"seller_id"`
	PriceCents       int64           `json:"price_cents"`
	FeeBps           int             `json:"fee_bps"`
	FeeCents         int64           `json:"fee_cents"`
	MinFeeCents      int64           `json:"min_fee_cents"`
	TotalChargeCents int64           `json:"total_charge_cents"`
	Discounts        Discounts       `json:"discounts"`
	Status           Status          `json:"status"`
	Method           Method          `json:"method"`
	Provider         Provider        `json:"provider"`
	ProviderRef      string          `json:"provider_ref"`
	FundedAt         *time.Time      `json:"funded_at,omitempty"`
	VerifiedBy       *string         `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time      `json:"verified_at,omitempty"`
	DisputeReason    *string         `json:"dispute_reason,omitempty"`
	Proofs           []ProofResponse `json:"proofs"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func ToEscrowResponse(e *Escrow) EscrowResponse {
	proofs := make([]ProofResponse, 0, len(e.Proofs))
	for _, p := range e.Proofs {
		proofs = append(proofs, ProofResponse{
			ID:          p.ID,
			SubmittedBy: p.SubmittedBy,
			Kind:        p.Kind,
			Note:        p.Note,
			URL:         p.URL,
			CreatedAt:   p.CreatedAt,
		})
	}

	discounts := e.Discounts
	if discounts == nil {
		discounts = Discounts{}
	}

	return EscrowResponse{
		ID:               e.ID,
		ListingID:        e.ListingID,
		BuyerID:          e.BuyerID,
		SellerID:         e.SellerID,
		PriceCents:       e.PriceCents,
		FeeBps:           e.FeeBps,
		FeeCents:         e.FeeCents,
		MinFeeCents:      e.MinFeeCents,
		TotalChargeCents: e.TotalChargeCents,
		Discounts:        discounts,
		Status:           e.Status,
		Method:           e.Method,
		Provider:         e.Provider,
		ProviderRef:      e.ProviderRef,
		FundedAt:         e.FundedAt,
		VerifiedBy:       e.VerifiedBy,
		VerifiedAt:       e.VerifiedAt,
		DisputeReason:    e.DisputeReason,
		Proofs:           proofs,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

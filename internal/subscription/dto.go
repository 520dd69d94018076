// AngelaMos | 2026
// dto.go

package subscription

import (
	"time"
)

type StartPaymentRequest struct {
	Plan   string `json:"plan"   validate:"required,max=32"`
	Method string `json:"method" validate:"required,oneof=bank_transfer mobile_money crypto"`
}

type SubmitPaymentRequest struct {
	Reference string `json:"reference" validate:"required,max=128"`
	ProofURL  string `json:"proof_url" validate:"omitempty,url,max=2048"`
	Note      string `json:"note"      validate:"max=2000"`
}

type PlanResponse struct {
	Name                  string      `json:"name"`
	BillingType           BillingType `json:"billing_type"`
	MonthlyPriceCents     *int64      `json:"monthly_price_cents,omitempty"`
	OneTimePriceCents     *int64      `json:"one_time_price_cents,omitempty"`
	ListingsPerMonth      *int        `json:"listings_per_month"`
	ConversationsPerMonth *int        `json:"conversations_per_month"`
	Order                 int         `json:"order"`
}

func ToPlanResponse(p *Plan) PlanResponse {
	return PlanResponse{
		Name:                  string(p.Name),
		BillingType:           p.BillingType,
		MonthlyPriceCents:     p.MonthlyPriceCents,
		OneTimePriceCents:     p.OneTimePriceCents,
		ListingsPerMonth:      p.ListingsPerMonth,
		ConversationsPerMonth: p.ConversationsPerMonth,
		Order:                 p.SortOrder,
	}
}

type PaymentResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Plan             string     `json:"plan"`
	Method           Method     `json:"method"`
	TotalChargeCents int64      `json:"total_charge_cents"`
	Status           Status     `json:"status"`
	Reference        *string    `json:"reference,omitempty"`
	ProofURL         *string    `json:"proof_url,omitempty"`
	Note             *string    `json:"note,omitempty"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		UserID:           p.UserID,
		Plan:             string(p.PlanName),
		Method:           p.Method,
		TotalChargeCents: p.TotalChargeCents,
		Status:           p.Status,
		Reference:        p.Reference,
		ProofURL:         p.ProofURL,
		Note:             p.Note,
		SubmittedAt:      p.SubmittedAt,
		VerifiedAt:       p.VerifiedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

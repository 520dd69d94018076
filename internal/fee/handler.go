// AngelaMos | 2026
// handler.go

package fee

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

type QuoteRequest struct {
	PriceCents           int64  `json:"price_cents"            validate:"gte=0,lte=100000000000"`
	Platform             string `json:"platform"               validate:"max=64"`
	BuyerTier            string `json:"buyer_tier"             validate:"omitempty,oneof=FREE PRO VIP ADMIN"`
	SellerTier           string `json:"seller_tier"            validate:"omitempty,oneof=FREE PRO VIP ADMIN"`
	BuyerCompletedDeals  int    `json:"buyer_completed_deals"  validate:"gte=0"`
	SellerCompletedDeals int    `json:"seller_completed_deals" validate:"gte=0"`
}

type QuoteResponse struct {
	Result
	PriceCents       int64 `json:"price_cents"`
	TotalChargeCents int64 `json:"total_charge_cents"`
}

type Handler struct {
	policy    Policy
	validator *validator.Validate
}

func NewHandler(policy Policy) *Handler {
	return &Handler{
		policy:    policy,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/fees/quote", h.Quote)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result := h.policy.Compute(Input{
		PriceCents:           req.PriceCents,
		Platform:             req.Platform,
		BuyerTier:            user.ParseTier(req.BuyerTier),
		SellerTier:           user.ParseTier(req.SellerTier),
		BuyerCompletedDeals:  req.BuyerCompletedDeals,
		SellerCompletedDeals: req.SellerCompletedDeals,
	})

	core.OK(w, QuoteResponse{
		Result:           result,
		PriceCents:       req.PriceCents,
		TotalChargeCents: result.TotalChargeCents(req.PriceCents),
	})
}

// AngelaMos | 2026
// handler.go

package subscription

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/plans", h.ListPlans)

	r.Route("/subscriptions/payments", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.StartPayment)
		r.Get("/{id}", h.GetPayment)
		r.Post("/{id}/submit", h.SubmitPayment)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/subscriptions/payments", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/{id}/verify", h.VerifyPayment)
	})
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, ToPlanResponse(&plans[i]))
	}

	core.OK(w, out)
}

func (h *Handler) StartPayment(w http.ResponseWriter, r *http.Request) {
	var req StartPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.StartPayment(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.Plan,
		Method(req.Method),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToPaymentResponse(p))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.SubmitPayment(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
		SubmitInput{Reference: req.Reference, ProofURL: req.ProofURL, Note: req.Note},
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.VerifyPayment(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToPaymentResponse(p))
}

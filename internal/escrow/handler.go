// AngelaMos | 2026
// handler.go

package escrow

import (
	"encoding/json"
	"net/http"
	"strconv"

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
	r.Route("/escrows", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/proofs", h.SubmitProof)
		r.Post("/{id}/funding", h.RecordFunding)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/escrows", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/pending", h.ListPending)
		r.Post("/{id}/verify", h.Verify)
		r.Post("/{id}/dispute", h.Dispute)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEscrowRequest
	if !h.decode(w, r, &req) {
		return
	}

	e, err := h.service.Create(r.Context(), CreateInput{
		ListingID: req.ListingID,
		BuyerID:   middleware.GetUserID(r.Context()),
		Method:    Method(req.Method),
	})
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToEscrowResponse(e))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToEscrowResponse(e))
}

func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	var req SubmitProofRequest
	if !h.decode(w, r, &req) {
		return
	}

	e, err := h.service.SubmitProof(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
		ProofInput{Kind: ProofKind(req.Kind), Note: req.Note, URL: req.URL},
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToEscrowResponse(e))
}

func (h *Handler) RecordFunding(w http.ResponseWriter, r *http.Request) {
	var req RecordFundingRequest
	if !h.decode(w, r, &req) {
		return
	}

	e, err := h.service.RecordFunding(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
		Status(req.Status),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToEscrowResponse(e))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Verify(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToEscrowResponse(e))
}

func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	var req DisputeRequest
	if !h.decode(w, r, &req) {
		return
	}

	e, err := h.service.Dispute(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
		req.Reason,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToEscrowResponse(e))
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	escrows, err := h.service.ListPendingVerification(r.Context(), limit)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	out := make([]EscrowResponse, 0, len(escrows))
	for i := range escrows {
		out = append(out, ToEscrowResponse(&escrows[i]))
	}

	core.OK(w, out)
}

// AngelaMos | 2026
// handler.go

package quota

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/usage", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.Usage)
		r.Post("/{resource}/reserve", h.Reserve)
	})
}

func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Usage(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, summary)
}

// Reserve consumes one unit of a resource that has no row of its own here,
// such as opening a conversation.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	resource := Resource(chi.URLParam(r, "resource"))
	if !resource.Valid() {
		core.BadRequest(w, fmt.Sprintf("unknown resource %q", resource))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Reserve(r.Context(), userID, resource); err != nil {
		core.JSONError(w, err)
		return
	}

	summary, err := h.service.Usage(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, summary)
}

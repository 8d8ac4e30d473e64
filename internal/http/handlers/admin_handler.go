package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/http/middleware"
	"github.com/eprison/visitor-management/internal/http/response"
	"github.com/eprison/visitor-management/internal/service"
)

// AdminHandler serves the approval queue for one facility's administrator.
// Every lookup is scoped to the admin's own jail; records elsewhere read as
// not found.
type AdminHandler struct {
	Visits service.VisitService
}

func NewAdminHandler(visits service.VisitService) *AdminHandler {
	return &AdminHandler{Visits: visits}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/visits/pending", h.listPending)
	r.Get("/visits/{id}", h.getVisit)
	r.Get("/visits/{id}/pass", h.getPass)
	r.Post("/visits/{id}/approve", h.approve)
	r.Post("/visits/{id}/reject", h.reject)
	return r
}

func (h *AdminHandler) listPending(w http.ResponseWriter, r *http.Request) {
	visits, err := h.Visits.ListPending(r.Context(), staffJailID(r))
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

func (h *AdminHandler) getVisit(w http.ResponseWriter, r *http.Request) {
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	visit, err := h.Visits.GetForFacility(r.Context(), id, staffJailID(r))
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

func (h *AdminHandler) getPass(w http.ResponseWriter, r *http.Request) {
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	png, err := h.Visits.Pass(r.Context(), id, staffJailID(r))
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *AdminHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.DecisionApprove)
}

func (h *AdminHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.DecisionReject)
}

func (h *AdminHandler) decide(w http.ResponseWriter, r *http.Request, decision domain.Decision) {
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	claims := middleware.Claims(r)
	visit, err := h.Visits.Decide(r.Context(), claims.Sub, staffJailID(r), id, decision)
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

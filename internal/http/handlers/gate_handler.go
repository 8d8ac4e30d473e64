package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eprison/visitor-management/internal/http/middleware"
	"github.com/eprison/visitor-management/internal/http/response"
	"github.com/eprison/visitor-management/internal/service"
)

// GateHandler serves the security desk: the day's roster, the verification
// report, and the check-in/check-out transitions.
type GateHandler struct {
	Gate service.GateService
}

func NewGateHandler(gate service.GateService) *GateHandler {
	return &GateHandler{Gate: gate}
}

func (h *GateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/visits/today", h.today)
	r.Get("/occupancy", h.occupancy)
	r.Get("/visits/{id}/verify", h.verify)
	r.Post("/visits/{id}/check-in", h.checkIn)
	r.Post("/visits/{id}/check-out", h.checkOut)
	return r
}

func (h *GateHandler) today(w http.ResponseWriter, r *http.Request) {
	visits, err := h.Gate.TodaysApproved(r.Context(), staffJailID(r))
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

func (h *GateHandler) occupancy(w http.ResponseWriter, r *http.Request) {
	visits, err := h.Gate.CurrentOccupancy(r.Context(), staffJailID(r))
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(visits),
		"visits": visits,
	})
}

// verify returns the full layer report without changing anything, so the desk
// can see why a pass fails before turning someone away.
func (h *GateHandler) verify(w http.ResponseWriter, r *http.Request) {
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	report, err := h.Gate.Verify(r.Context(), staffJailID(r), id)
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *GateHandler) checkIn(w http.ResponseWriter, r *http.Request) {
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	claims := middleware.Claims(r)
	visit, err := h.Gate.CheckIn(r.Context(), claims.Sub, staffJailID(r), id)
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

func (h *GateHandler) checkOut(w http.ResponseWriter, r *http.Request) {
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	claims := middleware.Claims(r)
	visit, err := h.Gate.CheckOut(r.Context(), claims.Sub, staffJailID(r), id)
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

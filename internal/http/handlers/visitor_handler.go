package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/http/response"
	"github.com/eprison/visitor-management/internal/repo/postgres"
	"github.com/eprison/visitor-management/internal/service"
)

// VisitorHandler serves the visitor-facing surface: browsing facilities and
// prisoners, submitting visit requests, and reading back one's own visits.
type VisitorHandler struct {
	Visits service.VisitService
	Users  postgres.UserRepo
}

func NewVisitorHandler(visits service.VisitService, users postgres.UserRepo) *VisitorHandler {
	return &VisitorHandler{Visits: visits, Users: users}
}

func (h *VisitorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/visits", h.createVisit)
	r.Get("/visits", h.listVisits)
	r.Get("/visits/{id}", h.getVisit)
	r.Get("/emergency-eligibility", h.emergencyEligibility)
	return r
}

func (h *VisitorHandler) createVisit(w http.ResponseWriter, r *http.Request) {
	visitor := currentUser(w, r, h.Users)
	if visitor == nil {
		return
	}

	var in domain.VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	visit, err := h.Visits.CreateRequest(r.Context(), visitor, in)
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

func (h *VisitorHandler) listVisits(w http.ResponseWriter, r *http.Request) {
	visitor := currentUser(w, r, h.Users)
	if visitor == nil {
		return
	}
	visits, err := h.Visits.ListMine(r.Context(), visitor.ID)
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

func (h *VisitorHandler) getVisit(w http.ResponseWriter, r *http.Request) {
	visitor := currentUser(w, r, h.Users)
	if visitor == nil {
		return
	}
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	visit, err := h.Visits.GetForVisitor(r.Context(), id, visitor.ID)
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visit)
}

func (h *VisitorHandler) emergencyEligibility(w http.ResponseWriter, r *http.Request) {
	visitor := currentUser(w, r, h.Users)
	if visitor == nil {
		return
	}
	prisonerID, err := strconv.ParseInt(r.URL.Query().Get("prisoner_id"), 10, 64)
	if err != nil || prisonerID <= 0 {
		response.BadRequest(w, "prisoner_id is required")
		return
	}

	eligible, err := h.Visits.EmergencyEligible(r.Context(), visitor, prisonerID, time.Now())
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prisoner_id": prisonerID,
		"eligible":    eligible,
	})
}

// FacilityHandler serves the public directory visitors browse while filling
// in a request.
type FacilityHandler struct {
	Facilities postgres.FacilityRepo
}

func NewFacilityHandler(facilities postgres.FacilityRepo) *FacilityHandler {
	return &FacilityHandler{Facilities: facilities}
}

func (h *FacilityHandler) ListJails(w http.ResponseWriter, r *http.Request) {
	jails, err := h.Facilities.ListJails(r.Context())
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jails": jails})
}

func (h *FacilityHandler) SearchPrisoners(w http.ResponseWriter, r *http.Request) {
	jailID, err := strconv.ParseInt(r.URL.Query().Get("jail_id"), 10, 64)
	if err != nil || jailID <= 0 {
		response.BadRequest(w, "jail_id is required")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		response.BadRequest(w, "search query is required")
		return
	}

	prisoners, err := h.Facilities.SearchPrisoners(r.Context(), jailID, query)
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prisoners": prisoners})
}

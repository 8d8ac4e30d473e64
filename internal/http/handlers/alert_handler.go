package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/http/middleware"
	"github.com/eprison/visitor-management/internal/http/response"
	"github.com/eprison/visitor-management/internal/repo/postgres"
	"github.com/eprison/visitor-management/internal/service"
)

type AlertHandler struct {
	Alerts service.AlertService
	Users  postgres.UserRepo
}

func NewAlertHandler(alerts service.AlertService, users postgres.UserRepo) *AlertHandler {
	return &AlertHandler{Alerts: alerts, Users: users}
}

// PollActive answers the banner poll every authenticated session runs. Kept
// off the staff-only router.
func (h *AlertHandler) PollActive(w http.ResponseWriter, r *http.Request) {
	alert, err := h.Alerts.PollActive(r.Context())
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	if alert == nil {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active": true,
		"alert":  alert,
	})
}

func (h *AlertHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	issuer := currentUser(w, r, h.Users)
	if issuer == nil {
		return
	}

	var in struct {
		Reason   string `json:"reason"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	alert, err := h.Alerts.Trigger(r.Context(), issuer, in.Reason, in.Location)
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.AlertFilter{
		Search: r.URL.Query().Get("q"),
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("active"); v == "true" || v == "false" {
		active := v == "true"
		filter.Active = &active
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.DateFrom = t
		}
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.DateTo = t
		}
	}

	alerts, stats, err := h.Alerts.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"stats":  stats,
	})
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, false)
}

func (h *AlertHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, true)
}

func (h *AlertHandler) setState(w http.ResponseWriter, r *http.Request, active bool) {
	id := urlID(w, r, "id")
	if id == 0 {
		return
	}
	claims := middleware.Claims(r)

	var alert *domain.EmergencyAlert
	var err error
	if active {
		alert, err = h.Alerts.Reactivate(r.Context(), claims.Sub, id)
	} else {
		alert, err = h.Alerts.Resolve(r.Context(), claims.Sub, id)
	}
	if err != nil {
		response.FromDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/http/middleware"
	"github.com/eprison/visitor-management/internal/http/response"
	"github.com/eprison/visitor-management/internal/repo/postgres"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// urlID reads a positive int64 path parameter. Returns 0 on bad input after
// writing the error response.
func urlID(w http.ResponseWriter, r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid "+name)
		return 0
	}
	return id
}

// currentUser loads the authenticated user's full record. The token only
// carries identity; blacklist and relationship state come from the database.
func currentUser(w http.ResponseWriter, r *http.Request, users postgres.UserRepo) *domain.User {
	claims := middleware.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "authentication required")
		return nil
	}
	u, err := users.FindByID(r.Context(), claims.Sub)
	if err != nil {
		response.InternalError(w, "db error")
		return nil
	}
	if u == nil {
		response.Unauthorized(w, "account no longer exists")
		return nil
	}
	return u
}

// staffJailID reads the facility binding from staff claims. RequireRole has
// already rejected staff tokens without one.
func staffJailID(r *http.Request) int64 {
	claims := middleware.Claims(r)
	if claims == nil || claims.JailID == nil {
		return 0
	}
	return *claims.JailID
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

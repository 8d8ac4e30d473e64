package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/eprison/visitor-management/internal/http/response"
	"github.com/eprison/visitor-management/internal/repo/postgres"
	"github.com/eprison/visitor-management/pkg/auth"
	"github.com/eprison/visitor-management/pkg/logger"
)

type AuthHandler struct {
	Users     postgres.UserRepo
	JWTSecret string
	AccessTTL time.Duration
}

func NewAuthHandler(users postgres.UserRepo, jwtSecret string, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{Users: users, JWTSecret: jwtSecret, AccessTTL: accessTTL}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	return r
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
		response.BadRequest(w, "username and password are required")
		return
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	u, err := h.Users.FindByUsername(r.Context(), username)
	if err != nil {
		response.InternalError(w, "db error")
		return
	}
	if u == nil {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	ok, _ := argon2id.ComparePasswordAndHash(in.Password, u.PasswordHash)
	if !ok {
		response.Unauthorized(w, "invalid credentials")
		return
	}

	access, err := auth.NewAccessToken(u.ID, u.Username, string(u.Role), u.JailID, h.AccessTTL, h.JWTSecret)
	if err != nil {
		response.InternalError(w, "token error")
		return
	}

	logger.InfoContext(r.Context(), "User logged in", "user_id", u.ID, "role", u.Role)

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": access,
		"user": map[string]any{
			"id":        u.ID,
			"username":  u.Username,
			"full_name": u.FullName,
			"role":      u.Role,
			"jail_id":   u.JailID,
		},
	})
}

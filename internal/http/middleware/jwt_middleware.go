package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/eprison/visitor-management/internal/domain"
	"github.com/eprison/visitor-management/internal/http/response"
	"github.com/eprison/visitor-management/pkg/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// Auth carries the shared JWT secret for request authentication.
type Auth struct {
	Secret string
}

func NewAuth(secret string) *Auth {
	return &Auth{Secret: secret}
}

func (a *Auth) RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			response.Unauthorized(w, "invalid authorization header")
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")
		claims, err := auth.Parse(raw, a.Secret)
		if err != nil {
			response.Unauthorized(w, "invalid authorization token")
			return
		}
		ctx := context.WithValue(r.Context(), CtxClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only the listed roles past. Staff roles must also carry
// a facility binding in the token; a staff token without one is rejected.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := Claims(r)
			if claims == nil {
				response.Unauthorized(w, "authentication required")
				return
			}
			role, ok := domain.ParseRole(claims.Role)
			if !ok || !allowed[role] {
				response.Forbidden(w, "insufficient permissions")
				return
			}
			if role.IsStaff() && claims.JailID == nil {
				response.Forbidden(w, "staff account has no facility assignment")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}

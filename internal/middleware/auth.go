package middleware

import (
	"context"
	"encoding/json"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/rookgm/pcmart/internal/service"
	"net/http"
	"strings"
)

type contextKey int

const (
	contextKeyPayload contextKey = iota
)

const authCookie = "auth_token"

// Auth verifies token from Authorization header or auth_token cookie.
// With roles set, the token role must be one of them.
func Auth(ts service.TokenService, roles ...string) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			payload, err := ts.VerifyToken(raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if len(roles) > 0 && !hasRole(payload.Role, roles) {
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyPayload, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PayloadFromContext returns token payload stored by Auth
func PayloadFromContext(ctx context.Context) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(contextKeyPayload).(*models.TokenPayload)
	return payload, ok
}

func bearerToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	cookie, err := r.Cookie(authCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

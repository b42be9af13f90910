package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

type contextKey struct{}

var claimsKey contextKey

// HeaderName — заголовок, в котором клиент передаёт токен.
const HeaderName = "X-Auth-Token"

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// ClaimsFromContext достаёт клеймы, положенные Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// Authenticate проверяет токен из X-Auth-Token и кладёт клеймы в контекст.
func (m *Manager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get(HeaderName)
		if tokenString == "" {
			respondUnauthorized(w, "No token, authorization denied")
			return
		}

		claims, err := m.Parse(tokenString)
		if err != nil {
			log.Warn().Err(err).Msg("auth: token verification failed")
			respondUnauthorized(w, "Token is not valid")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin пускает дальше только администраторов.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRole(next, func(role string) bool {
		return role == RoleAdmin
	})
}

// RequireStaff пускает сотрудников и администраторов.
func RequireStaff(next http.Handler) http.Handler {
	return requireRole(next, func(role string) bool {
		return role == RoleStaff || role == RoleAdmin
	})
}

func requireRole(next http.Handler, allowed func(role string) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !allowed(claims.Role) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"Access denied"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

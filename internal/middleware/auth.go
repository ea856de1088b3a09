package middleware

import (
	"net/http"
	"strings"

	"github.com/otaviolbarbosa/nascere/internal/auth"
)

// RequireAuthMiddleware returns a mux-compatible middleware (func(http.Handler) http.Handler).
func RequireAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(secret, next)
	}
}

func RequireAuth(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearer(r)
		if raw == "" {
			writeJSONError(w, "Não autorizado", http.StatusUnauthorized)
			return
		}
		claims, err := auth.ParseJWT(secret, raw)
		if err != nil {
			writeJSONError(w, "Sessão inválida", http.StatusUnauthorized)
			return
		}
		r = r.WithContext(auth.WithClaims(r.Context(), claims))
		next.ServeHTTP(w, r)
	})
}

// RequireUserType restringe a rota a determinados user_type (ex.: só profissionais).
// Token sem user_type é tratado como profissional: é o caso das contas criadas antes do campo existir.
func RequireUserType(types ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := auth.ClaimsFrom(r.Context())
			if c == nil {
				writeJSONError(w, "Não autorizado", http.StatusUnauthorized)
				return
			}
			ut := c.UserMetadata.UserType
			if ut == "" {
				ut = auth.UserTypeProfessional
			}
			for _, t := range types {
				if ut == t {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, "Acesso negado", http.StatusForbidden)
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

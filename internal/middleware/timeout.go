package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// uploadFactor multiplica o prazo de requests multipart (upload de documento e comprovante).
const uploadFactor = 4

// Timeout põe deadline no context de cada request. Uploads multipart recebem uploadFactor vezes
// o prazo, já que o handler ainda repassa o arquivo ao bucket. timeoutSec <= 0 desliga.
func Timeout(timeoutSec int) func(http.Handler) http.Handler {
	if timeoutSec <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	base := time.Duration(timeoutSec) * time.Second
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := base
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				d = base * uploadFactor
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

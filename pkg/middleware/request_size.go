package middleware

import (
	"net/http"

	apperrors "medibook/pkg/errors"
	httputil "medibook/pkg/http"
)

// MaxRequestSize caps the request body. Declared oversize bodies are refused
// up front; others fail on read once the limit is crossed.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				_ = httputil.WriteError(w, apperrors.TooLarge(limit))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

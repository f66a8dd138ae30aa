// Package requesttime pins a single "now" for the whole request so the
// registration timestamp, log lines, and emitted events agree.
package requesttime

import (
	"net/http"
	"time"

	"scanbo/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

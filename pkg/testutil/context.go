package testutil

import (
	"net/http"
	"time"

	id "scanbo/pkg/domain"
	"scanbo/pkg/requestcontext"
)

// WithAccount simulates the auth middleware: the request carries accountID
// as the authenticated caller. Invalid ids are not added.
func WithAccount(req *http.Request, accountID string) *http.Request {
	parsed, err := id.ParseAccountID(accountID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithAccountID(req.Context(), parsed))
}

// WithRequestMetadata sets the request id and client metadata that the
// request and metadata middlewares would normally set.
func WithRequestMetadata(req *http.Request, requestID, clientIP, userAgent string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	ctx = requestcontext.WithClientMetadata(ctx, clientIP, userAgent)
	return req.WithContext(ctx)
}

// WithTime pins the request clock.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

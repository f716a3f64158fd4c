package testutil

import (
	"net/http"
	"time"

	"opsbridge/pkg/requestcontext"
)

// WithBearer sets the Authorization header the API token middleware expects.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// WithRequestTime pins the request-scoped clock, as the metadata middleware would.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}

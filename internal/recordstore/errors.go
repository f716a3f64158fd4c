package recordstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/platform/sentinel"
)

// snippetLimit bounds how much of an upstream error body is kept for diagnosis.
const snippetLimit = 512

// UpstreamError is a non-2xx answer from the record store.
type UpstreamError struct {
	Op     string
	Table  string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("recordstore %s %s: status %d: %s", e.Op, e.Table, e.Status, e.Body)
}

// Unwrap exposes the infrastructure fact behind well-known statuses.
func (e *UpstreamError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return sentinel.ErrNotFound
	case http.StatusTooManyRequests:
		return sentinel.ErrRateLimited
	default:
		return nil
	}
}

// Rejected reports whether the store definitively refused a request: it
// answered with a 4xx other than 408, so nothing was written. For any other
// error the write may have landed.
func Rejected(err error) bool {
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	return upstream.Status >= 400 && upstream.Status < 500 && upstream.Status != http.StatusRequestTimeout
}

// truncate keeps at most snippetLimit bytes without splitting a UTF-8 sequence.
func truncate(b []byte) string {
	if len(b) <= snippetLimit {
		return string(b)
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "…"
}

// Translate converts a client error into a domain error with a stable code.
// Rate limiting keeps its own code so callers see the upstream's status.
func Translate(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}

	var upstream *UpstreamError
	hasUpstream := errors.As(err, &upstream)

	var de *dErrors.Error
	switch {
	case errors.Is(err, sentinel.ErrRateLimited):
		de = dErrors.Wrap(err, dErrors.CodeRateLimited, message)
	case errors.Is(err, sentinel.ErrNotFound):
		de = dErrors.Wrap(err, dErrors.CodeNotFound, message)
	case errors.Is(err, context.DeadlineExceeded):
		de = dErrors.Wrap(err, dErrors.CodeTimeout, message)
	default:
		de = dErrors.Wrap(err, dErrors.CodeUpstream, message)
	}
	if hasUpstream {
		de.WithDetail("upstream_status", upstream.Status).WithDetail("upstream_body", upstream.Body)
	}
	return de
}

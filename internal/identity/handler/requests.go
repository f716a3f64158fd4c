package handler

import (
	"strings"

	"opsbridge/pkg/canonical"
	dErrors "opsbridge/pkg/domain-errors"
)

const maxIdentityLength = 2048

// ResolveRequest is the body of POST /parents/resolve. Callers that only know
// a contact address may send email instead of identityValue.
type ResolveRequest struct {
	IdentityValue   string `json:"identityValue"`
	Email           string `json:"email"`
	DisplayNameHint string `json:"displayNameHint"`
}

// Validate implements httputil.Validatable.
func (r *ResolveRequest) Validate() error {
	if len(r.IdentityValue) > maxIdentityLength || len(r.Email) > maxIdentityLength {
		return dErrors.New(dErrors.CodeValidation, "identity value is too long")
	}
	r.IdentityValue = strings.TrimSpace(r.IdentityValue)
	r.DisplayNameHint = strings.TrimSpace(r.DisplayNameHint)
	if r.IdentityValue == "" && strings.TrimSpace(r.Email) != "" {
		r.IdentityValue = canonical.DomainFromEmail(r.Email)
	}
	if r.IdentityValue == "" {
		return dErrors.New(dErrors.CodeInvalidIdentity, "identityValue or email is required")
	}
	return nil
}

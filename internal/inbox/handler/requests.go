package handler

import (
	"strings"

	dErrors "opsbridge/pkg/domain-errors"
)

const (
	maxTraceKeyLength = 512
	maxFields         = 200
)

// CreateChildRequest is the body of POST /children. parentId is the single
// link form older callers send; it is merged into parentIds.
type CreateChildRequest struct {
	TraceKey  string         `json:"traceKey"`
	Fields    map[string]any `json:"fields"`
	ParentID  string         `json:"parentId"`
	ParentIDs []string       `json:"parentIds"`
}

// Validate implements httputil.Validatable.
func (r *CreateChildRequest) Validate() error {
	r.TraceKey = strings.TrimSpace(r.TraceKey)
	if r.TraceKey == "" {
		return dErrors.New(dErrors.CodeValidation, "traceKey is required")
	}
	if len(r.TraceKey) > maxTraceKeyLength {
		return dErrors.New(dErrors.CodeValidation, "traceKey is too long")
	}
	if len(r.Fields) > maxFields {
		return dErrors.New(dErrors.CodeValidation, "too many fields")
	}
	if id := strings.TrimSpace(r.ParentID); id != "" {
		r.ParentIDs = append([]string{id}, r.ParentIDs...)
	}
	return nil
}

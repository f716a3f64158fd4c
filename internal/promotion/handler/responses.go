package handler

import (
	"errors"

	"opsbridge/internal/promotion"
	dErrors "opsbridge/pkg/domain-errors"
)

// PromoteResponse reports the outcome. ok is true when every child exists,
// including the orphaned-source case, which still carries an error code.
type PromoteResponse struct {
	OK               bool     `json:"ok"`
	State            string   `json:"state"`
	CreatedTasks     []string `json:"createdTasks"`
	CreatedDecisions []string `json:"createdDecisions"`
	SourceDeleted    bool     `json:"sourceDeleted"`
	Error            string   `json:"error,omitempty"`
	ErrorDescription string   `json:"error_description,omitempty"`
}

func FromResult(res *promotion.Result) *PromoteResponse {
	out := &PromoteResponse{
		OK:               res.OK(),
		State:            string(res.State),
		CreatedTasks:     res.CreatedTasks,
		CreatedDecisions: res.CreatedDecisions,
		SourceDeleted:    res.SourceDeleted,
	}
	if out.CreatedTasks == nil {
		out.CreatedTasks = []string{}
	}
	if out.CreatedDecisions == nil {
		out.CreatedDecisions = []string{}
	}
	if res.Failure != nil {
		code := dErrors.CodeOf(res.Failure)
		out.Error = string(code)
		var de *dErrors.Error
		if code != dErrors.CodeInternal && errors.As(res.Failure, &de) {
			out.ErrorDescription = de.Message
		}
	}
	return out
}

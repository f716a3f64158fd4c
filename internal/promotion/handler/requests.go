package handler

import (
	"strings"

	dErrors "opsbridge/pkg/domain-errors"
)

// maxChildren bounds each list in one promotion request.
const maxChildren = 200

// PromoteRequest is the body of POST /promotions and POST /inbox/{id}/promote.
// The path form may omit sourceId.
type PromoteRequest struct {
	SourceID  string           `json:"sourceId"`
	Tasks     []map[string]any `json:"tasks"`
	Decisions []map[string]any `json:"decisions"`
}

// Validate implements httputil.Validatable.
func (r *PromoteRequest) Validate() error {
	r.SourceID = strings.TrimSpace(r.SourceID)
	if len(r.Tasks) > maxChildren || len(r.Decisions) > maxChildren {
		return dErrors.New(dErrors.CodeValidation, "too many children in one promotion")
	}
	for _, list := range [][]map[string]any{r.Tasks, r.Decisions} {
		for _, item := range list {
			if item == nil {
				return dErrors.New(dErrors.CodeValidation, "children must be JSON objects")
			}
		}
	}
	return nil
}

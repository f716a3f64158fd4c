package handler

import "opsbridge/internal/identity"

// ResolveResponse is the body returned by POST /parents/resolve. MatchedBy is
// null when the parent was just created.
type ResolveResponse struct {
	RecordID  string  `json:"recordId"`
	Created   bool    `json:"created"`
	MatchedBy *string `json:"matchedBy"`
}

func FromResolution(res *identity.Resolution) *ResolveResponse {
	out := &ResolveResponse{RecordID: res.RecordID, Created: res.Created}
	if res.MatchedBy != identity.MatchedNone {
		by := string(res.MatchedBy)
		out.MatchedBy = &by
	}
	return out
}

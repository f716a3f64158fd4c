package handler

import (
	"opsbridge/internal/inbox"
	"opsbridge/internal/recordstore"
)

type CreateChildResponse struct {
	ID           string `json:"id"`
	WasDuplicate bool   `json:"wasDuplicate"`
}

// ProposalResponse lists drafted children in the shape POST /promotions accepts.
type ProposalResponse struct {
	Tasks     []recordstore.Fields `json:"tasks"`
	Decisions []recordstore.Fields `json:"decisions"`
}

func FromProposal(p *inbox.Proposal) *ProposalResponse {
	out := &ProposalResponse{Tasks: p.Tasks, Decisions: p.Decisions}
	if out.Tasks == nil {
		out.Tasks = []recordstore.Fields{}
	}
	if out.Decisions == nil {
		out.Decisions = []recordstore.Fields{}
	}
	return out
}

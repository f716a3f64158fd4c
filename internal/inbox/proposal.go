package inbox

import (
	"context"
	"errors"
	"strings"

	"opsbridge/internal/recordstore"
	"opsbridge/internal/textgen"
	dErrors "opsbridge/pkg/domain-errors"
	pkgstrings "opsbridge/pkg/platform/strings"
	"opsbridge/pkg/platform/sentinel"
	"opsbridge/pkg/requestcontext"
)

// maxProposalItems bounds each list in a drafted proposal.
const maxProposalItems = 20

// Proposal is a draft set of children for promoting one inbox item. It is
// never written by the inbox; callers review it and submit a promotion.
type Proposal struct {
	Tasks     []recordstore.Fields
	Decisions []recordstore.Fields
}

type draftItem struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

type draft struct {
	Tasks     []draftItem `json:"tasks"`
	Decisions []draftItem `json:"decisions"`
}

const proposalInstruction = `You turn one inbox item into follow-up work.
Return a JSON object {"tasks":[{"title":"","notes":""}],"decisions":[{"title":"","notes":""}]}.
Tasks are concrete actions someone must take. Decisions are choices the item records as already made.
Return empty arrays when the item contains neither.`

// Propose drafts tasks and decisions from an inbox item's subject and content.
func (s *Service) Propose(ctx context.Context, itemID string) (*Proposal, error) {
	if s.generator == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "text generation is not configured")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "inbox item id is required")
	}

	rec, err := s.records.Get(ctx, s.schema.Table, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeSourceNotFound, "inbox item not found")
		}
		return nil, recordstore.Translate(err, "load inbox item")
	}

	var prompt strings.Builder
	if title := rec.Text(s.schema.TitleField); title != "" {
		prompt.WriteString("Subject: " + title + "\n\n")
	}
	content := rec.Text(s.schema.ContentField)
	if content == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "inbox item has no content to draft from")
	}
	prompt.WriteString(content)

	text, err := s.generator.Generate(ctx, textgen.Request{
		System: proposalInstruction,
		Prompt: prompt.String(),
		JSON:   true,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "proposal generation failed",
			"record_id", itemID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "text generation failed")
	}

	var d draft
	if err := textgen.DecodeJSON(text, &d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "text generation returned malformed JSON")
	}

	parents := pkgstrings.LinkedIDs(rec.Fields[s.schema.ParentField])
	return &Proposal{
		Tasks:     toFields(d.Tasks, s.tasks.TitleField, s.tasks.NotesField, s.tasks.ParentField, parents),
		Decisions: toFields(d.Decisions, s.decisions.TitleField, s.decisions.NotesField, s.decisions.ParentField, parents),
	}, nil
}

func toFields(items []draftItem, titleField, notesField, parentField string, parents []string) []recordstore.Fields {
	out := make([]recordstore.Fields, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" || titleField == "" {
			continue
		}
		f := recordstore.Fields{titleField: title}
		if notes := strings.TrimSpace(it.Notes); notes != "" && notesField != "" {
			f[notesField] = notes
		}
		if len(parents) > 0 && parentField != "" {
			f[parentField] = parents
		}
		out = append(out, f)
		if len(out) == maxProposalItems {
			break
		}
	}
	return out
}

package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	"opsbridge/internal/mergemap"
	dErrors "opsbridge/pkg/domain-errors"
)

// GenerateRequest is the body of POST /documents. Besides the named fields
// the body may carry merge data in any shape mergemap recognises
// (placeholders, fields, record.fields, data).
type GenerateRequest struct {
	FolderID   string `json:"folderId"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`

	values mergemap.Map
}

func (r *GenerateRequest) UnmarshalJSON(data []byte) error {
	type named GenerateRequest
	var n named
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return err
	}
	*r = GenerateRequest(n)
	r.values = mergemap.Build(body)
	return nil
}

// Values returns the merged placeholder map.
func (r *GenerateRequest) Values() mergemap.Map {
	if r.values == nil {
		return mergemap.Map{}
	}
	return r.values
}

// Validate implements httputil.Validatable.
func (r *GenerateRequest) Validate() error {
	r.TemplateID = strings.TrimSpace(r.TemplateID)
	r.FolderID = strings.TrimSpace(r.FolderID)
	if r.TemplateID == "" {
		return dErrors.New(dErrors.CodeValidation, "templateId is required")
	}
	return nil
}

// CreateFolderRequest is the body of POST /folders.
type CreateFolderRequest struct {
	ParentID string `json:"parentId"`
	Name     string `json:"name"`
}

// Validate implements httputil.Validatable.
func (r *CreateFolderRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	return nil
}

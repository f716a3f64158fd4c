package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema names the RecordStore tables and fields the engine reads and writes.
type Schema struct {
	Companies CompanyTable `yaml:"companies"`
	Inbox     InboxTable   `yaml:"inbox"`
	Tasks     ChildTable   `yaml:"tasks"`
	Decisions ChildTable   `yaml:"decisions"`
}

// CompanyTable holds parent entities. SecondaryField is the legacy identity
// column still populated on older records.
type CompanyTable struct {
	Table          string `yaml:"table"`
	NameField      string `yaml:"name_field"`
	PrimaryField   string `yaml:"primary_field"`
	SecondaryField string `yaml:"secondary_field"`
}

type InboxTable struct {
	Table        string `yaml:"table"`
	TraceField   string `yaml:"trace_field"`
	AuditField   string `yaml:"audit_field"`
	ParentField  string `yaml:"parent_field"`
	TitleField   string `yaml:"title_field"`
	ContentField string `yaml:"content_field"`
}

// ChildTable is a promotion target. ParentField, when set, receives the
// source item's parent links unless the caller supplied its own. TitleField
// and NotesField shape drafted proposals.
type ChildTable struct {
	Table       string `yaml:"table"`
	ParentField string `yaml:"parent_field"`
	TitleField  string `yaml:"title_field"`
	NotesField  string `yaml:"notes_field"`
}

// DefaultSchema matches the base the service was first deployed against.
func DefaultSchema() Schema {
	return Schema{
		Companies: CompanyTable{
			Table:          "Companies",
			NameField:      "Name",
			PrimaryField:   "Domain",
			SecondaryField: "Website",
		},
		Inbox: InboxTable{
			Table:        "Inbox",
			TraceField:   "Message ID",
			AuditField:   "Audit Log",
			ParentField:  "Company",
			TitleField:   "Subject",
			ContentField: "Content",
		},
		Tasks: ChildTable{
			Table:       "Tasks",
			ParentField: "Company",
			TitleField:  "Name",
			NotesField:  "Notes",
		},
		Decisions: ChildTable{
			Table:       "Decisions",
			ParentField: "Company",
			TitleField:  "Decision",
			NotesField:  "Rationale",
		},
	}
}

// LoadSchema reads a YAML schema file. Unknown keys are rejected; fields left
// out keep their defaults.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema file: %w", err)
	}
	schema := DefaultSchema()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&schema); err != nil {
		return Schema{}, fmt.Errorf("parse schema file: %w", err)
	}
	if err := schema.Validate(); err != nil {
		return Schema{}, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}

// Validate checks that every field the engine depends on is named.
func (s Schema) Validate() error {
	required := []struct {
		name, value string
	}{
		{"companies.table", s.Companies.Table},
		{"companies.name_field", s.Companies.NameField},
		{"companies.primary_field", s.Companies.PrimaryField},
		{"inbox.table", s.Inbox.Table},
		{"inbox.trace_field", s.Inbox.TraceField},
		{"inbox.audit_field", s.Inbox.AuditField},
		{"tasks.table", s.Tasks.Table},
		{"decisions.table", s.Decisions.Table},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}
	return nil
}

// Package documents renders FileStore templates from caller-supplied merge
// data and stores the result next to the client's other files.
package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"opsbridge/internal/filestore"
	"opsbridge/internal/mergemap"
	"opsbridge/internal/platform/metrics"
	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/platform/sentinel"
	"opsbridge/pkg/requestcontext"
)

// GenerateInput names a template, a destination folder and the merge data.
// Name may itself contain placeholders; it defaults to the template's base name.
type GenerateInput struct {
	FolderID   string
	TemplateID string
	Name       string
	Values     mergemap.Map
}

// Generated is a stored document plus the placeholders nothing filled.
type Generated struct {
	DocumentID string
	URL        string
	Missing    []string
}

type Service struct {
	files   filestore.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(files filestore.Store, opts ...Option) (*Service, error) {
	if files == nil {
		return nil, fmt.Errorf("file store is required")
	}
	s := &Service{
		files:  files,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate renders the template and stores the document. Unfilled
// placeholders do not fail the call; they are reported in Missing.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Generated, error) {
	templateID := strings.TrimSpace(in.TemplateID)
	if templateID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "templateId is required")
	}

	template, err := s.files.ReadTemplate(ctx, templateID)
	if err != nil {
		return nil, s.translate(ctx, err, "template not found", "read template")
	}

	content, missing := filestore.Render(template, in.Values)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = path.Base(templateID)
	}
	name, _ = filestore.Render(name, in.Values)

	doc, err := s.files.CreateDocument(ctx, strings.TrimSpace(in.FolderID), name, content)
	if err != nil {
		return nil, s.translate(ctx, err, "folder not found", "store document")
	}

	s.metrics.IncDocumentsGenerated()
	s.logger.InfoContext(ctx, "document generated",
		"document_id", doc.ID,
		"template_id", templateID,
		"keys", len(in.Values),
		"missing", missing,
		"request_id", requestcontext.RequestID(ctx),
	)
	if missing == nil {
		missing = []string{}
	}
	return &Generated{DocumentID: doc.ID, URL: doc.URL, Missing: missing}, nil
}

// CreateFolder creates name under parentID, or at the root when parentID is empty.
func (s *Service) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "name is required")
	}
	id, err := s.files.CreateFolder(ctx, strings.TrimSpace(parentID), name)
	if err != nil {
		return "", s.translate(ctx, err, "parent folder not found", "create folder")
	}
	s.logger.InfoContext(ctx, "folder created",
		"folder_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	return id, nil
}

func (s *Service) translate(ctx context.Context, err error, notFound, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFound)
	}
	s.logger.ErrorContext(ctx, "filestore call failed",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeUpstream, op+" failed")
}

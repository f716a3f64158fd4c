// Package inbox creates trace-keyed inbox items exactly once and drafts
// promotion proposals from their content.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"opsbridge/internal/platform/config"
	"opsbridge/internal/platform/metrics"
	"opsbridge/internal/recordstore"
	"opsbridge/internal/textgen"
	"opsbridge/pkg/canonical"
	dErrors "opsbridge/pkg/domain-errors"
	pkgstrings "opsbridge/pkg/platform/strings"
	"opsbridge/pkg/requestcontext"
)

// Child is the outcome of CreateChildOrSkip.
type Child struct {
	ID           string
	WasDuplicate bool
}

// Records is the slice of the record store the inbox needs.
type Records interface {
	List(ctx context.Context, table string, q recordstore.Query) ([]recordstore.Record, error)
	Get(ctx context.Context, table, id string) (*recordstore.Record, error)
	Create(ctx context.Context, table string, fields recordstore.Fields) (*recordstore.Record, error)
	Update(ctx context.Context, table, id string, fields recordstore.Fields) (*recordstore.Record, error)
}

type Service struct {
	records   Records
	schema    config.InboxTable
	tasks     config.ChildTable
	decisions config.ChildTable
	generator textgen.Generator
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

// WithGenerator enables proposal drafting.
func WithGenerator(g textgen.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

func New(records Records, schema config.Schema, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if schema.Inbox.Table == "" || schema.Inbox.TraceField == "" || schema.Inbox.AuditField == "" {
		return nil, fmt.Errorf("inbox table, trace field and audit field are required")
	}
	s := &Service{
		records:   records,
		schema:    schema.Inbox,
		tasks:     schema.Tasks,
		decisions: schema.Decisions,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateChildOrSkip creates an inbox item for traceKey unless one already
// exists, in which case the existing item's audit log records the repeat
// delivery and its id is returned. Repeated calls converge on one record.
func (s *Service) CreateChildOrSkip(ctx context.Context, traceKey string, fields map[string]any, parentIDs []string) (*Child, error) {
	traceKey = strings.TrimSpace(traceKey)
	if traceKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "traceKey is required")
	}

	existing, err := s.records.List(ctx, s.schema.Table, recordstore.Query{
		Field:      s.schema.TraceField,
		Equals:     traceKey,
		MaxRecords: 1,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "duplicate check failed",
			"trace_key", traceKey,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, recordstore.Translate(err, "check for existing inbox item")
	}
	if len(existing) > 0 {
		rec := existing[0]
		s.appendAudit(ctx, &rec, "duplicate delivery of "+traceKey+" skipped")
		s.metrics.IncChildCreation("duplicate")
		return &Child{ID: rec.ID, WasDuplicate: true}, nil
	}

	out := recordstore.Fields{}
	for k, v := range canonical.CoerceFields(fields) {
		out[k] = v
	}
	out[s.schema.TraceField] = traceKey
	out[s.schema.AuditField] = AuditLine(requestcontext.Now(ctx), "created from "+traceKey)
	if s.schema.ParentField != "" {
		// Links come only from parentIDs; a value under the link field in
		// fields is caller text such as a company name.
		delete(out, s.schema.ParentField)
		if links := pkgstrings.DedupeAndTrim(parentIDs); len(links) > 0 {
			out[s.schema.ParentField] = links
		}
	}

	created, err := s.records.Create(ctx, s.schema.Table, out)
	if err != nil {
		s.logger.ErrorContext(ctx, "inbox item create failed",
			"trace_key", traceKey,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, recordstore.Translate(err, "create inbox item")
	}

	s.metrics.IncChildCreation("created")
	s.logger.InfoContext(ctx, "inbox item created",
		"trace_key", traceKey,
		"record_id", created.ID,
		"parent_links", len(parentIDs),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Child{ID: created.ID, WasDuplicate: false}, nil
}

// appendAudit is best-effort: a failure is logged and counted, never returned.
func (s *Service) appendAudit(ctx context.Context, rec *recordstore.Record, message string) {
	log := AppendAudit(rec.Text(s.schema.AuditField), AuditLine(requestcontext.Now(ctx), message))
	if _, err := s.records.Update(ctx, s.schema.Table, rec.ID, recordstore.Fields{s.schema.AuditField: log}); err != nil {
		s.metrics.IncAuditAppendFailure()
		s.logger.WarnContext(ctx, "audit log append failed",
			"record_id", rec.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// AuditLine formats one audit entry.
func AuditLine(at time.Time, message string) string {
	return at.UTC().Format(time.RFC3339) + " " + message
}

// AppendAudit concatenates line onto an existing log, one entry per line.
func AppendAudit(existing, line string) string {
	existing = strings.TrimRight(existing, "\n")
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

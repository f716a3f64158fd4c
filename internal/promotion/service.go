// Package promotion turns an inbox item into task and decision records and
// then deletes the item. The item is deleted only after every child batch
// has been confirmed, and deletion is never attempted on a failure path.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"opsbridge/internal/journal"
	"opsbridge/internal/platform/config"
	"opsbridge/internal/platform/metrics"
	"opsbridge/internal/recordstore"
	"opsbridge/pkg/canonical"
	dErrors "opsbridge/pkg/domain-errors"
	pkgstrings "opsbridge/pkg/platform/strings"
	"opsbridge/pkg/platform/sentinel"
	"opsbridge/pkg/requestcontext"
)

// errShortBatch marks a batch the store confirmed only part of. Some of the
// unconfirmed records may still exist.
var errShortBatch = errors.New("store confirmed fewer records than requested")

// DefaultTimeout bounds one promotion once it is detached from the caller.
const DefaultTimeout = 2 * time.Minute

// Records is the slice of the record store the workflow needs.
type Records interface {
	Get(ctx context.Context, table, id string) (*recordstore.Record, error)
	CreateBatch(ctx context.Context, table string, batch []recordstore.Fields) ([]recordstore.Record, error)
	Delete(ctx context.Context, table, id string) error
}

// Request declares the children to create for one source item.
type Request struct {
	SourceID  string
	Tasks     []map[string]any
	Decisions []map[string]any
}

// Result reports how far a promotion got. Failure is nil on SourceDeleted and
// carries the coded reason otherwise. Created ids are listed even on failure
// so an operator can finish the job by hand.
type Result struct {
	SourceID         string
	State            State
	CreatedTasks     []string
	CreatedDecisions []string
	SourceDeleted    bool
	Failure          error
}

// OK reports whether the caller may treat the promotion as done.
func (r *Result) OK() bool {
	return r.State.Succeeded()
}

type Service struct {
	records   Records
	inbox     config.InboxTable
	tasks     config.ChildTable
	decisions config.ChildTable
	journal   journal.Store
	timeout   time.Duration
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

// WithJournal records outcomes that need manual reconciliation.
func WithJournal(j journal.Store) Option {
	return func(s *Service) {
		s.journal = j
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(records Records, schema config.Schema, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if schema.Inbox.Table == "" || schema.Tasks.Table == "" || schema.Decisions.Table == "" {
		return nil, fmt.Errorf("inbox, task and decision tables are required")
	}
	s := &Service{
		records:   records,
		inbox:     schema.Inbox,
		tasks:     schema.Tasks,
		decisions: schema.Decisions,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Promote runs the workflow. The returned error is set only when the source
// could not be confirmed, in which case nothing was written. Every other
// outcome, successful or not, is described by the Result.
func (s *Service) Promote(ctx context.Context, req Request) (*Result, error) {
	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sourceId is required")
	}

	// In-flight writes are not abandoned when the caller disconnects.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	source, err := s.records.Get(ctx, s.inbox.Table, sourceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeSourceNotFound, "promotion source not found")
		}
		s.logger.ErrorContext(ctx, "promotion source lookup failed",
			"source_id", sourceID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, recordstore.Translate(err, "load promotion source")
	}

	res := &Result{
		SourceID:         sourceID,
		State:            StateStart,
		CreatedTasks:     []string{},
		CreatedDecisions: []string{},
	}
	parents := pkgstrings.LinkedIDs(source.Fields[s.inbox.ParentField])

	ids, err := s.createAll(ctx, s.tasks, s.children(s.tasks, req.Tasks, parents))
	res.CreatedTasks = append(res.CreatedTasks, ids...)
	if err != nil {
		return s.finish(ctx, res, err, "tasks"), nil
	}
	res.State = StateTasksCreated

	ids, err = s.createAll(ctx, s.decisions, s.children(s.decisions, req.Decisions, parents))
	res.CreatedDecisions = append(res.CreatedDecisions, ids...)
	if err != nil {
		return s.finish(ctx, res, err, "decisions"), nil
	}
	res.State = StateDecisionsCreated

	if len(res.CreatedTasks)+len(res.CreatedDecisions) == 0 {
		res.State = StateFailedNoWrites
		res.Failure = dErrors.New(dErrors.CodeNothingToDo, "promotion declared no tasks or decisions")
		s.record(ctx, res)
		return res, nil
	}

	// Deletion is the last step and runs only here.
	if err := s.records.Delete(ctx, s.inbox.Table, sourceID); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			res.State = StateFailedPartialOrphanRisk
			res.Failure = recordstore.Translate(err, "delete promotion source")
			s.logger.ErrorContext(ctx, "RECONCILE: children created but source delete failed",
				"source_id", sourceID,
				"created_tasks", res.CreatedTasks,
				"created_decisions", res.CreatedDecisions,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			s.record(ctx, res)
			return res, nil
		}
		s.logger.WarnContext(ctx, "promotion source already gone at delete",
			"source_id", sourceID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	res.State = StateSourceDeleted
	res.SourceDeleted = true
	s.logger.InfoContext(ctx, "inbox item promoted",
		"source_id", sourceID,
		"tasks", len(res.CreatedTasks),
		"decisions", len(res.CreatedDecisions),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.record(ctx, res)
	return res, nil
}

// finish classifies a batch failure. Only a first call the store refused
// outright wrote nothing. Any other failure may have committed the batch, so
// it is partial and the source stays for an operator.
func (s *Service) finish(ctx context.Context, res *Result, err error, stage string) *Result {
	confirmed := len(res.CreatedTasks) + len(res.CreatedDecisions)
	if confirmed == 0 && recordstore.Rejected(err) {
		res.State = StateFailedNoWrites
		res.Failure = err
	} else {
		res.State = StateFailedPartial
		res.Failure = dErrors.Wrap(err, dErrors.CodePartialFailure, "promotion stopped after "+stage+" batch failure; source retained").
			WithDetail("created_tasks", res.CreatedTasks).
			WithDetail("created_decisions", res.CreatedDecisions)
	}
	s.logger.ErrorContext(ctx, "promotion stopped",
		"source_id", res.SourceID,
		"stage", stage,
		"state", string(res.State),
		"created_tasks", res.CreatedTasks,
		"created_decisions", res.CreatedDecisions,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	s.record(ctx, res)
	return res
}

// createAll writes items in store-sized chunks. It returns the ids of every
// record the store confirmed, including those of a short chunk.
func (s *Service) createAll(ctx context.Context, table config.ChildTable, items []recordstore.Fields) ([]string, error) {
	var ids []string
	for start := 0; start < len(items); start += recordstore.MaxBatchSize {
		chunk := items[start:min(start+recordstore.MaxBatchSize, len(items))]
		created, err := s.records.CreateBatch(ctx, table.Table, chunk)
		for _, rec := range created {
			ids = append(ids, rec.ID)
		}
		if err != nil {
			return ids, recordstore.Translate(err, "create "+table.Table+" batch")
		}
		if len(created) != len(chunk) {
			return ids, dErrors.Wrap(errShortBatch, dErrors.CodePartialFailure,
				fmt.Sprintf("%s batch created %d of %d records", table.Table, len(created), len(chunk)))
		}
	}
	return ids, nil
}

// children coerces declared field maps and links each child to the source's
// parents unless the caller linked it already.
func (s *Service) children(table config.ChildTable, items []map[string]any, parents []string) []recordstore.Fields {
	out := make([]recordstore.Fields, 0, len(items))
	for _, item := range items {
		f := recordstore.Fields{}
		for k, v := range canonical.CoerceFields(item) {
			f[k] = v
		}
		if table.ParentField != "" {
			links := pkgstrings.LinkedIDs(item[table.ParentField])
			if len(links) == 0 {
				links = parents
			}
			delete(f, table.ParentField)
			if len(links) > 0 {
				f[table.ParentField] = append([]string(nil), links...)
			}
		}
		out = append(out, f)
	}
	return out
}

func (s *Service) record(ctx context.Context, res *Result) {
	s.metrics.IncPromotionOutcome(string(res.State))
	if !res.State.NeedsReconciliation() || s.journal == nil {
		return
	}
	reason := ""
	if res.Failure != nil {
		reason = res.Failure.Error()
	}
	entry := journal.NewEntry(res.SourceID, string(res.State), reason, res.CreatedTasks, res.CreatedDecisions, requestcontext.Now(ctx))
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to write reconciliation journal",
			"source_id", res.SourceID,
			"state", string(res.State),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// Package identity resolves parent entities (companies) by a normalized
// identity key, creating one only when no existing record matches.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"opsbridge/internal/platform/config"
	"opsbridge/internal/platform/keylock"
	"opsbridge/internal/platform/metrics"
	"opsbridge/internal/recordstore"
	"opsbridge/pkg/canonical"
	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/platform/sentinel"
	"opsbridge/pkg/requestcontext"
)

// MatchedBy names the identity field that produced a match.
type MatchedBy string

const (
	MatchedNone      MatchedBy = ""
	MatchedPrimary   MatchedBy = "primary"
	MatchedSecondary MatchedBy = "secondary"
)

// Resolution is the outcome of GetOrCreateParent.
type Resolution struct {
	RecordID  string
	Created   bool
	MatchedBy MatchedBy
	Key       string
}

// Records is the slice of the record store the resolver needs.
type Records interface {
	List(ctx context.Context, table string, q recordstore.Query) ([]recordstore.Record, error)
	Create(ctx context.Context, table string, fields recordstore.Fields) (*recordstore.Record, error)
}

type Service struct {
	records Records
	schema  config.CompanyTable
	locker  keylock.Locker
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

// WithLocker replaces the default in-process striped lock, e.g. with a
// Redis lock shared by every replica.
func WithLocker(l keylock.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

func New(records Records, schema config.CompanyTable, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if schema.Table == "" || schema.PrimaryField == "" || schema.NameField == "" {
		return nil, fmt.Errorf("companies table, name field and primary field are required")
	}
	s := &Service{
		records: records,
		schema:  schema,
		locker:  keylock.NewStriped(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetOrCreateParent probes the primary identity field, then the secondary
// one, and creates a parent only when both miss. The probe-then-create
// sequence holds a lock on the normalized key.
func (s *Service) GetOrCreateParent(ctx context.Context, identityValue, displayNameHint string) (*Resolution, error) {
	key := canonical.NormalizeDomain(identityValue)
	if key == "" {
		return nil, dErrors.New(dErrors.CodeInvalidIdentity, "identity value is empty after normalization")
	}

	unlock, err := s.locker.Lock(ctx, "identity:"+key)
	if err != nil {
		return nil, translateLockError(err)
	}
	defer unlock()

	if rec, err := s.probe(ctx, s.schema.PrimaryField, key); err != nil {
		return nil, err
	} else if rec != nil {
		return s.found(ctx, rec, key, MatchedPrimary), nil
	}

	if s.schema.SecondaryField != "" && s.schema.SecondaryField != s.schema.PrimaryField {
		if rec, err := s.probe(ctx, s.schema.SecondaryField, key); err != nil {
			return nil, err
		} else if rec != nil {
			return s.found(ctx, rec, key, MatchedSecondary), nil
		}
	}

	name := strings.TrimSpace(displayNameHint)
	if name == "" {
		name = key
	}
	fields := recordstore.Fields{
		s.schema.NameField:    name,
		s.schema.PrimaryField: key,
	}
	if s.schema.SecondaryField != "" {
		fields[s.schema.SecondaryField] = key
	}
	created, err := s.records.Create(ctx, s.schema.Table, fields)
	if err != nil {
		s.logger.ErrorContext(ctx, "parent create failed",
			"identity_key", key,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, recordstore.Translate(err, "create parent record")
	}

	s.metrics.IncParentResolution("created")
	s.logger.InfoContext(ctx, "parent created",
		"identity_key", key,
		"record_id", created.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Resolution{RecordID: created.ID, Created: true, MatchedBy: MatchedNone, Key: key}, nil
}

func (s *Service) probe(ctx context.Context, field, key string) (*recordstore.Record, error) {
	recs, err := s.records.List(ctx, s.schema.Table, recordstore.Query{Field: field, Equals: key, MaxRecords: 1})
	if err != nil {
		s.logger.ErrorContext(ctx, "parent lookup failed",
			"field", field,
			"identity_key", key,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, recordstore.Translate(err, "look up parent by "+field)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *Service) found(ctx context.Context, rec *recordstore.Record, key string, by MatchedBy) *Resolution {
	s.metrics.IncParentResolution(string(by))
	s.logger.DebugContext(ctx, "parent matched",
		"identity_key", key,
		"record_id", rec.ID,
		"matched_by", string(by),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Resolution{RecordID: rec.ID, Created: false, MatchedBy: by, Key: key}
}

func translateLockError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for identity lock")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled while waiting for identity lock")
	case errors.Is(err, sentinel.ErrLockHeld), errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity lock unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "acquire identity lock")
	}
}

package inbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"opsbridge/internal/platform/config"
	"opsbridge/internal/platform/metrics"
	"opsbridge/internal/recordstore"
	"opsbridge/internal/recordstore/mocks"
	"opsbridge/internal/textgen"
	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/requestcontext"
)

// =============================================================================
// Inbox Service Test Suite
// =============================================================================
// Convergence runs against the in-memory store. The best-effort audit append
// and upstream failures use a gomock store.

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	mock    *mocks.MockStore
	memory  *recordstore.MemoryStore
	schema  config.Schema
	logger  *slog.Logger
	service *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mock = mocks.NewMockStore(s.ctrl)
	s.memory = recordstore.NewMemoryStore()
	s.schema = config.DefaultSchema()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	var err error
	s.service, err = New(s.memory, s.schema, WithLogger(s.logger))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

// =============================================================================
// Duplicate guard
// =============================================================================

func (s *ServiceSuite) TestCreateChildOrSkip_ConvergesOnOneRecord() {
	fields := map[string]any{"Subject": "Quote request", "Content": []any{"hello"}}

	var ids []string
	var dupes []bool
	for range 3 {
		child, err := s.service.CreateChildOrSkip(s.ctx(), "msg-123", fields, []string{"recParent"})
		s.Require().NoError(err)
		ids = append(ids, child.ID)
		dupes = append(dupes, child.WasDuplicate)
	}

	s.Equal([]bool{false, true, true}, dupes)
	s.Equal(ids[0], ids[1])
	s.Equal(ids[0], ids[2])
	s.Equal(1, s.memory.Count(s.schema.Inbox.Table))

	rec, err := s.memory.Get(context.Background(), s.schema.Inbox.Table, ids[0])
	s.Require().NoError(err)
	s.Equal("msg-123", rec.Text("Message ID"))
	s.Equal("hello", rec.Text("Content"))
	s.Equal([]string{"recParent"}, rec.Fields["Company"])

	lines := strings.Split(rec.Text("Audit Log"), "\n")
	s.Len(lines, 3)
	s.Equal("2026-03-04T05:06:07Z created from msg-123", lines[0])
	s.Equal("2026-03-04T05:06:07Z duplicate delivery of msg-123 skipped", lines[1])
}

func (s *ServiceSuite) TestCreateChildOrSkip_ParentLinksAreIDs() {
	child, err := s.service.CreateChildOrSkip(s.ctx(), "msg-links", nil, []string{"recA", " recB ", "recA", ""})
	s.Require().NoError(err)

	rec, err := s.memory.Get(context.Background(), s.schema.Inbox.Table, child.ID)
	s.Require().NoError(err)
	s.Equal([]string{"recA", "recB"}, rec.Fields["Company"])
}

func (s *ServiceSuite) TestCreateChildOrSkip_NoParentsLeavesLinkUnset() {
	child, err := s.service.CreateChildOrSkip(s.ctx(), "msg-orphan", map[string]any{"Subject": "  "}, nil)
	s.Require().NoError(err)

	rec, err := s.memory.Get(context.Background(), s.schema.Inbox.Table, child.ID)
	s.Require().NoError(err)
	s.NotContains(rec.Fields, "Company")
	s.NotContains(rec.Fields, "Subject")
}

func (s *ServiceSuite) TestCreateChildOrSkip_NameUnderLinkFieldIsDropped() {
	fields := map[string]any{"Subject": "hi", "Company": "Acme Corp"}

	child, err := s.service.CreateChildOrSkip(s.ctx(), "msg-1", fields, nil)
	s.Require().NoError(err)
	rec, err := s.memory.Get(context.Background(), s.schema.Inbox.Table, child.ID)
	s.Require().NoError(err)
	s.NotContains(rec.Fields, "Company")
	s.Equal("hi", rec.Text("Subject"))

	child, err = s.service.CreateChildOrSkip(s.ctx(), "msg-2", fields, []string{"recAcme"})
	s.Require().NoError(err)
	rec, err = s.memory.Get(context.Background(), s.schema.Inbox.Table, child.ID)
	s.Require().NoError(err)
	s.Equal([]string{"recAcme"}, rec.Fields["Company"])
}

func (s *ServiceSuite) TestCreateChildOrSkip_EmptyTraceKey() {
	_, err := s.service.CreateChildOrSkip(s.ctx(), "   ", nil, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(0, s.memory.Count(s.schema.Inbox.Table))
}

func (s *ServiceSuite) TestCreateChildOrSkip_AuditAppendFailureIsSwallowed() {
	m := metrics.New(prometheus.NewRegistry())
	svc, err := New(s.mock, s.schema, WithLogger(s.logger), WithMetrics(m))
	s.Require().NoError(err)

	existing := recordstore.Record{ID: "recDup", Fields: recordstore.Fields{"Audit Log": "2026-01-01T00:00:00Z created from msg-9"}}
	s.mock.EXPECT().List(gomock.Any(), "Inbox", recordstore.Query{Field: "Message ID", Equals: "msg-9", MaxRecords: 1}).
		Return([]recordstore.Record{existing}, nil)
	s.mock.EXPECT().Update(gomock.Any(), "Inbox", "recDup", recordstore.Fields{
		"Audit Log": "2026-01-01T00:00:00Z created from msg-9\n2026-03-04T05:06:07Z duplicate delivery of msg-9 skipped",
	}).Return(nil, errors.New("connection reset"))

	child, err := svc.CreateChildOrSkip(s.ctx(), "msg-9", map[string]any{"Subject": "x"}, nil)
	s.Require().NoError(err)
	s.Equal("recDup", child.ID)
	s.True(child.WasDuplicate)
	s.Equal(1.0, testutil.ToFloat64(m.AuditAppendFailures))
}

func (s *ServiceSuite) TestCreateChildOrSkip_LookupFailure() {
	svc, err := New(s.mock, s.schema, WithLogger(s.logger))
	s.Require().NoError(err)

	s.mock.EXPECT().List(gomock.Any(), "Inbox", gomock.Any()).
		Return(nil, &recordstore.UpstreamError{Op: "list", Table: "Inbox", Status: 503, Body: "down"})

	_, err = svc.CreateChildOrSkip(s.ctx(), "msg-1", nil, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
}

// =============================================================================
// Proposals
// =============================================================================

func (s *ServiceSuite) TestPropose() {
	var seen textgen.Request
	gen := textgen.GeneratorFunc(func(_ context.Context, req textgen.Request) (string, error) {
		seen = req
		return `{"tasks":[{"title":"Send quote","notes":"by Friday"},{"title":"  "}],"decisions":[{"title":"Use vendor B"}]}`, nil
	})
	svc, err := New(s.memory, s.schema, WithLogger(s.logger), WithGenerator(gen))
	s.Require().NoError(err)

	item, err := s.memory.Create(context.Background(), "Inbox", recordstore.Fields{
		"Subject": "Quote",
		"Content": "Please send a quote by Friday. We picked vendor B.",
		"Company": []any{"recCo"},
	})
	s.Require().NoError(err)

	p, err := svc.Propose(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.True(seen.JSON)
	s.Contains(seen.Prompt, "Subject: Quote")

	s.Require().Len(p.Tasks, 1)
	s.Equal("Send quote", p.Tasks[0]["Name"])
	s.Equal("by Friday", p.Tasks[0]["Notes"])
	s.Equal([]string{"recCo"}, p.Tasks[0]["Company"])
	s.Require().Len(p.Decisions, 1)
	s.Equal("Use vendor B", p.Decisions[0]["Decision"])
}

func (s *ServiceSuite) TestPropose_Errors() {
	s.Run("generator not configured", func() {
		_, err := s.service.Propose(s.ctx(), "recX")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	gen := textgen.GeneratorFunc(func(context.Context, textgen.Request) (string, error) {
		return "I cannot help", nil
	})
	svc, err := New(s.memory, s.schema, WithLogger(s.logger), WithGenerator(gen))
	s.Require().NoError(err)

	s.Run("missing item", func() {
		_, err := svc.Propose(s.ctx(), "recMissing")
		s.True(dErrors.HasCode(err, dErrors.CodeSourceNotFound))
	})

	s.Run("malformed generation", func() {
		item, err := s.memory.Create(context.Background(), "Inbox", recordstore.Fields{"Content": "hi"})
		s.Require().NoError(err)
		_, err = svc.Propose(s.ctx(), item.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	})
}

func TestAppendAudit(t *testing.T) {
	assert.Equal(t, "b", AppendAudit("", "b"))
	assert.Equal(t, "a\nb", AppendAudit("a\n", "b"))
	assert.Equal(t, "a\nb\nc", AppendAudit("a\nb", "c"))
}

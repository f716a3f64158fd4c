package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsbridge/internal/platform/config"
	"opsbridge/internal/promotion"
	"opsbridge/internal/recordstore"
	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/testutil"
)

type fixture struct {
	router http.Handler
	store  *recordstore.MemoryStore
	schema config.Schema
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := recordstore.NewMemoryStore()
	schema := config.DefaultSchema()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := promotion.New(store, schema, promotion.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return &fixture{router: r, store: store, schema: schema}
}

func (f *fixture) seed(t *testing.T) string {
	t.Helper()
	rec, err := f.store.Create(context.Background(), f.schema.Inbox.Table, recordstore.Fields{f.schema.Inbox.TitleField: "Weekly sync"})
	require.NoError(t, err)
	return rec.ID
}

func TestHandlePromote_Success(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)

	rec := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/promotions", map[string]any{
		"sourceId":  id,
		"tasks":     []map[string]any{{"Name": "Draft SOW"}},
		"decisions": []map[string]any{{"Decision": "Monthly billing"}},
	}))
	testutil.AssertStatusOK(t, rec)

	resp := testutil.UnmarshalResponse[PromoteResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, "SOURCE_DELETED", resp.State)
	assert.True(t, resp.SourceDeleted)
	assert.Len(t, resp.CreatedTasks, 1)
	assert.Len(t, resp.CreatedDecisions, 1)
	assert.Empty(t, resp.Error)
	assert.Equal(t, 0, f.store.Count(f.schema.Inbox.Table))
}

func TestHandlePromote_PathForm(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)

	t.Run("mismatched body id", func(t *testing.T) {
		rec := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/inbox/"+id+"/promote", map[string]any{
			"sourceId": "recElse",
			"tasks":    []map[string]any{{"Name": "x"}},
		}))
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "validation_error")
	})

	t.Run("id from path", func(t *testing.T) {
		rec := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/inbox/"+id+"/promote", map[string]any{
			"tasks": []map[string]any{{"Name": "Call back"}},
		}))
		testutil.AssertStatusOK(t, rec)
		assert.Equal(t, 1, f.store.Count(f.schema.Tasks.Table))
	})
}

func TestHandlePromote_EmptyRequest(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)

	rec := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/promotions", map[string]any{
		"sourceId":  id,
		"tasks":     []any{},
		"decisions": []any{},
	}))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	resp := testutil.UnmarshalResponse[PromoteResponse](t, rec)
	assert.False(t, resp.OK)
	assert.Equal(t, "FAILED_NO_WRITES", resp.State)
	assert.Equal(t, "nothing_to_promote", resp.Error)
	assert.Equal(t, []string{}, resp.CreatedTasks)
	assert.Equal(t, 1, f.store.Count(f.schema.Inbox.Table))
}

func TestHandlePromote_SourceNotFound(t *testing.T) {
	f := newFixture(t)

	rec := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/promotions", map[string]any{
		"sourceId": "recNope",
		"tasks":    []map[string]any{{"Name": "x"}},
	}))
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "source_not_found")
	assert.Equal(t, 0, f.store.Count(f.schema.Tasks.Table))
}

func TestHandlePromote_MissingSourceID(t *testing.T) {
	f := newFixture(t)

	rec := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/promotions", map[string]any{
		"tasks": []map[string]any{{"Name": "x"}},
	}))
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "validation_error")
}

func TestPromoteRequest_Validate(t *testing.T) {
	tooMany := make([]map[string]any, maxChildren+1)
	for i := range tooMany {
		tooMany[i] = map[string]any{"Name": "x"}
	}
	assert.Error(t, (&PromoteRequest{SourceID: "rec1", Tasks: tooMany}).Validate())
	assert.Error(t, (&PromoteRequest{SourceID: "rec1", Decisions: []map[string]any{nil}}).Validate())

	req := &PromoteRequest{SourceID: "  rec1 "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "rec1", req.SourceID)
}

func TestFromResult_PartialFailure(t *testing.T) {
	res := &promotion.Result{
		State:        promotion.StateFailedPartial,
		CreatedTasks: []string{"recT1"},
		Failure:      errPartial(),
	}
	out := FromResult(res)
	assert.False(t, out.OK)
	assert.Equal(t, "partial_failure", out.Error)
	assert.Equal(t, []string{"recT1"}, out.CreatedTasks)
	assert.Equal(t, []string{}, out.CreatedDecisions)
	assert.NotEmpty(t, out.ErrorDescription)
}

func errPartial() error {
	return dErrors.New(dErrors.CodePartialFailure, "decisions batch created 1 of 2 records")
}

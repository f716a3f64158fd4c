package recordstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/platform/retry"
	"opsbridge/pkg/platform/sentinel"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/v0/appTest", Token: "secret"},
		WithHTTPClient(&http.Client{Transport: retry.New(srv.Client().Transport, retry.WithSleep(noSleep))}),
	)
	require.NoError(t, err)
	return c
}

func TestClient_ListBuildsFormulaAndAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v0/appTest/Companies", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, `{Domain} = 'o\'neil.com'`, r.URL.Query().Get("filterByFormula"))
		assert.Equal(t, "1", r.URL.Query().Get("maxRecords"))
		_, _ = io.WriteString(w, `{"records":[{"id":"rec1","createdTime":"2026-01-02T03:04:05Z","fields":{"Domain":"o'neil.com"}}]}`)
	})

	recs, err := c.List(context.Background(), "Companies", Query{Field: "Domain", Equals: "o'neil.com", MaxRecords: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "rec1", recs[0].ID)
	assert.Equal(t, "o'neil.com", recs[0].Text("Domain"))
}

func TestClient_ListFollowsOffset(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			assert.Empty(t, r.URL.Query().Get("offset"))
			_, _ = io.WriteString(w, `{"records":[{"id":"rec1","fields":{}}],"offset":"page2"}`)
			return
		}
		assert.Equal(t, "page2", r.URL.Query().Get("offset"))
		_, _ = io.WriteString(w, `{"records":[{"id":"rec2","fields":{}}]}`)
	})

	recs, err := c.List(context.Background(), "Tasks", Query{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CreateBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body struct {
			Records []struct {
				Fields map[string]any `json:"fields"`
			} `json:"records"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Records, 2)
		assert.Equal(t, "one", body.Records[0].Fields["Title"])
		_, _ = io.WriteString(w, `{"records":[{"id":"recA","fields":{}},{"id":"recB","fields":{}}]}`)
	})

	recs, err := c.CreateBatch(context.Background(), "Tasks", []Fields{{"Title": "one"}, {"Title": "two"}})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestClient_CreateBatchRejectsOversize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	batch := make([]Fields, MaxBatchSize+1)
	_, err := c.CreateBatch(context.Background(), "Tasks", batch)
	assert.Error(t, err)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPatch {
			_, _ = io.WriteString(w, `{"id":"rec9","fields":{"Audit Log":"x"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"rec9","deleted":true}`)
	})

	rec, err := c.Update(context.Background(), "Inbox Items", "rec9", Fields{"Audit Log": "x"})
	require.NoError(t, err)
	assert.Equal(t, "rec9", rec.ID)
	require.NoError(t, c.Delete(context.Background(), "Inbox Items", "rec9"))

	assert.Equal(t, []string{"PATCH /v0/appTest/Inbox Items/rec9", "DELETE /v0/appTest/Inbox Items/rec9"}, methods)
}

func TestClient_NotFoundWrapsSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"NOT_FOUND"}`)
	})

	_, err := c.Get(context.Background(), "Inbox", "recMissing")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 404, upstream.Status)
	assert.Contains(t, upstream.Body, "NOT_FOUND")
}

func TestClient_RateLimitExhaustedTranslatesToRateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"errors":[{"error":"RATE_LIMIT_REACHED"}]}`)
	})

	_, err := c.List(context.Background(), "Companies", Query{Field: "Domain", Equals: "x.com", MaxRecords: 1})
	require.Error(t, err)
	assert.Equal(t, int32(retry.DefaultMaxAttempts), calls.Load())

	translated := Translate(err, "lookup failed")
	assert.True(t, dErrors.HasCode(translated, dErrors.CodeRateLimited))
	de, ok := dErrors.As(translated)
	require.True(t, ok)
	assert.Equal(t, 429, de.Detail["upstream_status"])
}

func TestClient_ServerErrorTruncatesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", 4096))
	})

	_, err := c.Create(context.Background(), "Companies", Fields{"Name": "Acme"})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.LessOrEqual(t, len(upstream.Body), snippetLimit+len("…"))

	translated := Translate(err, "create company")
	assert.True(t, dErrors.HasCode(translated, dErrors.CodeUpstream))
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestQuery_Formula(t *testing.T) {
	assert.Equal(t, "", Query{}.Formula())
	assert.Equal(t, `{Message ID} = 'a\\b'`, Query{Field: "Message ID", Equals: `a\b`}.Formula())
}

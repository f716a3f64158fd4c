package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsbridge/internal/documents"
	"opsbridge/internal/filestore"
	"opsbridge/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *filestore.MemoryStore) {
	t.Helper()
	files := filestore.NewMemoryStore()
	files.PutTemplate("templates/kickoff.txt", "Kickoff with {{CLIENT}} on {{ Meeting Date }}")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := documents.New(files, documents.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r, files
}

func TestHandleGenerate(t *testing.T) {
	router, files := newRouter(t)

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/documents", map[string]any{
		"templateId": "templates/kickoff.txt",
		"name":       "Kickoff {{CLIENT}}",
		"record": map[string]any{
			"id":     "rec123",
			"fields": map[string]any{"Client": map[string]any{"id": "recC", "name": "Acme"}},
		},
	}))
	testutil.AssertStatus(t, rec, http.StatusCreated)

	resp := testutil.UnmarshalResponse[GenerateResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, "Kickoff Acme", resp.DocumentID)
	assert.Equal(t, []string{"MEETING DATE"}, resp.Missing)
	assert.NotEmpty(t, resp.URL)

	content, ok := files.Object(resp.DocumentID)
	require.True(t, ok)
	assert.Equal(t, "Kickoff with Acme on {{ Meeting Date }}", content)
}

func TestHandleGenerate_PlaceholdersWin(t *testing.T) {
	router, files := newRouter(t)

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/documents", map[string]any{
		"templateId":   "templates/kickoff.txt",
		"placeholders": map[string]any{"{{CLIENT}}": "Acme Ltd", "meeting date": 20260301},
		"fields":       map[string]any{"CLIENT": "Someone Else"},
	}))
	testutil.AssertStatus(t, rec, http.StatusCreated)

	resp := testutil.UnmarshalResponse[GenerateResponse](t, rec)
	assert.Empty(t, resp.Missing)
	content, _ := files.Object(resp.DocumentID)
	assert.Equal(t, "Kickoff with Acme Ltd on 20260301", content)
}

func TestHandleGenerate_Errors(t *testing.T) {
	router, _ := newRouter(t)

	t.Run("missing template id", func(t *testing.T) {
		rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/documents", map[string]any{"name": "x"}))
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "validation_error")
	})

	t.Run("unknown template", func(t *testing.T) {
		rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/documents", map[string]any{"templateId": "nope"}))
		testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/documents")
		req.Body = io.NopCloser(strings.NewReader(`["not","an","object"]`))
		rec := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
	})
}

func TestHandleCreateFolder(t *testing.T) {
	router, _ := newRouter(t)

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/folders", map[string]any{"name": "Acme"}))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	resp := testutil.UnmarshalResponse[CreateFolderResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, "Acme", resp.FolderID)

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/folders", map[string]any{"parentId": "Missing", "name": "x"}))
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/folders", map[string]any{"name": " "}))
	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "validation_error")
}

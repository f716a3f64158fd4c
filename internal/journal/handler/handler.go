package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"opsbridge/internal/journal"
	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/platform/httputil"
	"opsbridge/pkg/requestcontext"
)

// Handler exposes the reconciliation journal to operators.
type Handler struct {
	store  journal.Store
	logger *slog.Logger
}

func New(store journal.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/reconciliation", h.HandleList)
}

// ListResponse wraps journal entries, newest first.
type ListResponse struct {
	Entries []journal.Entry `json:"entries"`
}

// HandleList handles GET /reconciliation?limit=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.store.List(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list reconciliation journal",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reconciliation journal"))
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{Entries: entries})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opsbridge/internal/inbox"
	"opsbridge/pkg/platform/httputil"
	"opsbridge/pkg/requestcontext"
)

// Service defines the interface for inbox operations.
type Service interface {
	CreateChildOrSkip(ctx context.Context, traceKey string, fields map[string]any, parentIDs []string) (*inbox.Child, error)
	Propose(ctx context.Context, itemID string) (*inbox.Proposal, error)
}

// Handler wires inbox endpoints to the inbox service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts inbox endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/children", h.HandleCreateChild)
	r.Post("/inbox/{id}/proposal", h.HandlePropose)
}

// HandleCreateChild handles POST /children.
func (h *Handler) HandleCreateChild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateChildRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	child, err := h.service.CreateChildOrSkip(ctx, req.TraceKey, req.Fields, req.ParentIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "child creation failed",
			"request_id", requestID,
			"trace_key", req.TraceKey,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "child handled",
		"request_id", requestID,
		"record_id", child.ID,
		"was_duplicate", child.WasDuplicate,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, &CreateChildResponse{ID: child.ID, WasDuplicate: child.WasDuplicate})
}

// HandlePropose handles POST /inbox/{id}/proposal.
func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	itemID := chi.URLParam(r, "id")

	p, err := h.service.Propose(ctx, itemID)
	if err != nil {
		h.logger.ErrorContext(ctx, "proposal failed",
			"request_id", requestID,
			"record_id", itemID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposal(p))
}

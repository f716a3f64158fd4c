package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opsbridge/internal/identity"
	"opsbridge/pkg/platform/httputil"
	"opsbridge/pkg/requestcontext"
)

// Service defines the interface for parent resolution.
type Service interface {
	GetOrCreateParent(ctx context.Context, identityValue, displayNameHint string) (*identity.Resolution, error)
}

// Handler wires the parent resolution endpoint to the identity service.
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

// Register mounts identity endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/parents/resolve", h.HandleResolve)
}

// HandleResolve handles POST /parents/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.GetOrCreateParent(ctx, req.IdentityValue, req.DisplayNameHint)
	if err != nil {
		h.logger.ErrorContext(ctx, "parent resolution failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "parent resolved",
		"request_id", requestID,
		"record_id", res.RecordID,
		"created", res.Created,
		"matched_by", string(res.MatchedBy),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResolution(res))
}

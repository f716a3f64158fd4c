package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opsbridge/internal/promotion"
	dErrors "opsbridge/pkg/domain-errors"
	"opsbridge/pkg/platform/httputil"
	"opsbridge/pkg/requestcontext"
)

// Service defines the interface for the promotion workflow.
type Service interface {
	Promote(ctx context.Context, req promotion.Request) (*promotion.Result, error)
}

// Handler wires promotion endpoints to the workflow.
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

// Register mounts promotion endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/promotions", h.HandlePromote)
	r.Post("/inbox/{id}/promote", h.HandlePromote)
}

// HandlePromote handles POST /promotions and POST /inbox/{id}/promote.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[PromoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if pathID := chi.URLParam(r, "id"); pathID != "" {
		if req.SourceID != "" && req.SourceID != pathID {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "sourceId does not match the path"))
			return
		}
		req.SourceID = pathID
	}

	res, err := h.service.Promote(ctx, promotion.Request{
		SourceID:  req.SourceID,
		Tasks:     req.Tasks,
		Decisions: req.Decisions,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "promotion rejected",
			"request_id", requestID,
			"source_id", req.SourceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !res.OK() {
		status = dErrors.ToHTTPStatus(dErrors.CodeOf(res.Failure))
	}
	h.logger.InfoContext(ctx, "promotion finished",
		"request_id", requestID,
		"source_id", req.SourceID,
		"state", string(res.State),
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, status, FromResult(res))
}

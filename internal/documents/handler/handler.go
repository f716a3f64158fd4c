package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"opsbridge/internal/documents"
	"opsbridge/pkg/platform/httputil"
	"opsbridge/pkg/requestcontext"
)

// Service defines the interface for document generation.
type Service interface {
	Generate(ctx context.Context, in documents.GenerateInput) (*documents.Generated, error)
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
}

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

// Register mounts document endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.HandleGenerate)
	r.Post("/folders", h.HandleCreateFolder)
}

// HandleGenerate handles POST /documents.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[GenerateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	g, err := h.service.Generate(ctx, documents.GenerateInput{
		FolderID:   req.FolderID,
		TemplateID: req.TemplateID,
		Name:       req.Name,
		Values:     req.Values(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "document generation failed",
			"request_id", requestID,
			"template_id", req.TemplateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromGenerated(g))
}

// HandleCreateFolder handles POST /folders.
func (h *Handler) HandleCreateFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateFolderRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := h.service.CreateFolder(ctx, req.ParentID, req.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "folder creation failed",
			"request_id", requestID,
			"parent_id", req.ParentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &CreateFolderResponse{OK: true, FolderID: id})
}

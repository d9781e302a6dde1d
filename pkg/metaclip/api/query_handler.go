package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/render"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

// maxQueryBytes bounds the raw statement body.
const maxQueryBytes = 1 << 20

// QueryHandler serves the raw-query gateway: a statement sent as text/plain,
// answered with JSON.
type QueryHandler struct {
	service metaclip.Service
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(service metaclip.Service) *QueryHandler {
	return &QueryHandler{service: service}
}

// Execute handles POST /api. The statement firewall inside the service
// decides whether the text ever reaches the relational engine.
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "text/plain" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid Content-Type, expected text/plain", Code: "invalid_content_type"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "failed to read request body", Code: "bad_request"})
		return
	}

	caller := CallerFromContext(r.Context())

	result, err := h.service.ExecuteQuery(r.Context(), metaclip.ExecuteQueryRequest{
		Query:  string(body),
		Caller: caller,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Debug("query executed", "kind", result.Kind, "rows", len(result.Rows))
	render.JSON(w, r, result)
}

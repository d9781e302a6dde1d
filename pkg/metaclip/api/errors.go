package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/metaclip/metaclip/pkg/metaclip"
	"github.com/metaclip/metaclip/pkg/metaclip/firewall"
	"github.com/metaclip/metaclip/pkg/metaclip/httprange"
)

// ErrorResponse is the JSON error body. Code is stable for programmatic
// handling; Keyword is set for forbidden-command rejections only.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Keyword string `json:"keyword,omitempty"`
}

// renderError maps the core error taxonomy onto HTTP status codes. The core
// raises the most specific taxonomy member it can; this is the single place
// where classification becomes a wire status.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var forbidden *firewall.ForbiddenCommandError
	var queryErr *metaclip.QueryError

	switch {
	case errors.As(err, &forbidden):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{
			Error:   forbidden.Error(),
			Code:    "forbidden_command",
			Keyword: forbidden.Keyword,
		})

	case errors.Is(err, firewall.ErrMalformed):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: err.Error(), Code: "malformed_query"})

	case errors.As(err, &queryErr):
		// Engine-level failure of an accepted statement. Internal detail is
		// logged, not surfaced.
		slog.Error("query execution failed", "kind", queryErr.Kind, "error", queryErr.Err)
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Error: "query execution failed", Code: "query_failed"})

	case errors.Is(err, httprange.ErrInvalidRange):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: err.Error(), Code: "invalid_range"})

	case errors.Is(err, httprange.ErrNotSatisfiable):
		render.Status(r, http.StatusRequestedRangeNotSatisfiable)
		render.JSON(w, r, ErrorResponse{Error: err.Error(), Code: "range_not_satisfiable"})

	case errors.Is(err, metaclip.ErrItemNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "item not found", Code: "not_found"})

	case errors.Is(err, metaclip.ErrDuplicateItem):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Error: "item already exists", Code: "duplicate_item"})

	case errors.Is(err, metaclip.ErrNotAFile):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Error: "item is not a file", Code: "not_a_file"})

	case errors.Is(err, metaclip.ErrAlreadyMaterialized):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Error: "content already materialized", Code: "already_materialized"})

	case errors.Is(err, metaclip.ErrFileLost):
		// Integrity fault, not the requester's mistake; must stay
		// distinguishable from not-found.
		slog.Error("file content lost", "path", r.URL.Path)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "file content lost", Code: "file_lost"})

	default:
		slog.Error("internal error", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal server error", Code: "internal"})
	}
}

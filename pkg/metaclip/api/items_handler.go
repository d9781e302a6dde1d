package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/metaclip/metaclip/pkg/metaclip"
	"github.com/metaclip/metaclip/pkg/metaclip/httprange"
)

// maxUploadBytes bounds a single materialization upload.
const maxUploadBytes = 1 << 30

// ItemsHandler handles the structured item API.
type ItemsHandler struct {
	service   metaclip.Service
	maxUpload int64
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(service metaclip.Service) *ItemsHandler {
	return &ItemsHandler{service: service, maxUpload: maxUploadBytes}
}

// Routes returns the router for item endpoints.
func (h *ItemsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateItem)
	r.Get("/", h.ListItems)
	r.Get("/{id}", h.GetItem)
	r.Delete("/{id}", h.DeleteItem)
	r.Put("/{id}/content", h.UploadContent)
	r.Get("/{id}/content", h.DownloadContent)
	r.Head("/{id}/content", h.StatContent)
	return r
}

// CreateItemRequest is the request body for creating an item. Content is
// base64 on the wire; for file items it is an optional placeholder, the real
// bytes arrive through the content endpoint.
type CreateItemRequest struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content []byte `json:"content,omitempty"`
}

// ItemResponse is the response body for a single item. Content is embedded
// (base64) for text items only; file content is never inlined and is fetched
// via the content endpoint instead.
type ItemResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Content      []byte `json:"content,omitempty"`
	Size         int64  `json:"size"`
	Materialized *bool  `json:"materialized,omitempty"` // file items only
}

// CreateItem creates a text item or declares a file item.
func (h *ItemsHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("failed to decode request", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}

	itemType := metaclip.ItemType(req.Type)
	if !itemType.Valid() {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: fmt.Sprintf("unknown item type %q", req.Type), Code: "bad_request"})
		return
	}

	item, err := h.service.CreateItem(r.Context(), metaclip.CreateItemRequest{
		ID:      req.ID,
		Type:    itemType,
		Name:    req.Name,
		Content: req.Content,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("item created", "id", item.ID, "type", item.Type)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.itemResponse(r, item))
}

// GetItem returns item metadata, with inline content for text items.
func (h *ItemsHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, h.itemResponse(r, item))
}

// ListItems returns all items.
func (h *ItemsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, h.itemResponse(r, item))
	}
	render.JSON(w, r, resp)
}

// DeleteItem removes the item and its blob, if any.
func (h *ItemsHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("item deleted", "id", id)
	render.NoContent(w, r)
}

// UploadContent materializes a declared file item, exactly once. An upload
// beyond the size limit is rejected whole; a truncated blob is never
// committed as final content.
func (h *ItemsHandler) UploadContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.service.MaterializeContent(r.Context(), id, http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, ErrorResponse{Error: "content exceeds upload size limit", Code: "content_too_large"})
			return
		}
		renderError(w, r, err)
		return
	}

	slog.Info("content materialized", "id", id)
	render.NoContent(w, r)
}

// DownloadContent serves file content, honoring single byte-range requests.
func (h *ItemsHandler) DownloadContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rangeSpec := r.Header.Get("Range")

	reader, err := h.service.OpenContent(r.Context(), id, rangeSpec)
	if err != nil {
		if errors.Is(err, httprange.ErrNotSatisfiable) {
			if info, infoErr := h.service.ContentInfo(r.Context(), id); infoErr == nil {
				w.Header().Set("Content-Range", httprange.Unsatisfiable(info.Size))
			}
		}
		renderError(w, r, err)
		return
	}
	defer reader.Close()

	rng := reader.Range
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(rng.Length, 10))

	if rng.Partial {
		w.Header().Set("Content-Range", rng.ContentRange())
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if _, err := io.Copy(w, reader); err != nil {
		// Client went away mid-stream; the deferred Close releases the
		// underlying handle.
		slog.Debug("content stream aborted", "id", id, "error", err)
	}
}

// StatContent reports content length without a body.
func (h *ItemsHandler) StatContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := h.service.ContentInfo(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
}

// itemResponse assembles the wire shape for an item. File item content is
// never inlined; its blob state is reported instead.
func (h *ItemsHandler) itemResponse(r *http.Request, item *metaclip.Item) ItemResponse {
	resp := ItemResponse{
		ID:   item.ID,
		Type: string(item.Type),
		Name: item.Name,
	}

	if item.Type == metaclip.ItemTypeText {
		resp.Content = item.Content
		resp.Size = int64(len(item.Content))
		return resp
	}

	materialized := false
	if info, err := h.service.ContentInfo(r.Context(), item.ID); err == nil {
		materialized = info.Materialized
		resp.Size = info.Size
	}
	resp.Materialized = &materialized

	return resp
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/model"
)

// ImportServiceInterface はインポート元ハンドラーが必要とするサービスインターフェース。
type ImportServiceInterface interface {
	RegisterSource(ctx context.Context, feedURL, title, categoryID string) (*model.ImportSource, error)
	ListSources(ctx context.Context) ([]*model.ImportSource, error)
	DeleteSource(ctx context.Context, id string) error
}

// ImportHandler はインポート元管理のHTTPハンドラー（管理者専用）。
type ImportHandler struct {
	service ImportServiceInterface
}

// NewImportHandler はImportHandlerを生成する。
func NewImportHandler(service ImportServiceInterface) *ImportHandler {
	return &ImportHandler{service: service}
}

type registerSourceRequest struct {
	FeedURL    string `json:"feed_url"`
	Title      string `json:"title"`
	CategoryID string `json:"category_id"`
}

type importSourceResponse struct {
	ID                string     `json:"id"`
	FeedURL           string     `json:"feed_url"`
	Title             string     `json:"title"`
	CategoryID        string     `json:"category_id,omitempty"`
	Status            string     `json:"status"`
	ConsecutiveErrors int        `json:"consecutive_errors"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	LastFetchedAt     *time.Time `json:"last_fetched_at,omitempty"`
}

// Register はインポート元を登録する。
// POST /api/admin/import-sources
func (h *ImportHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerSourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FeedURL == "" {
		handleServiceError(w, model.NewInvalidURLError("フィードURLが空です"))
		return
	}

	source, err := h.service.RegisterSource(r.Context(), req.FeedURL, req.Title, req.CategoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toImportSourceResponse(source))
}

// List は全インポート元を返す。
// GET /api/admin/import-sources
func (h *ImportHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.ListSources(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]importSourceResponse, 0, len(sources))
	for _, s := range sources {
		resp = append(resp, toImportSourceResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete はインポート元を削除する。インポート済みの下書きは残る。
// DELETE /api/admin/import-sources/{id}
func (h *ImportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toImportSourceResponse(s *model.ImportSource) importSourceResponse {
	return importSourceResponse{
		ID:                s.ID,
		FeedURL:           s.FeedURL,
		Title:             s.Title,
		CategoryID:        s.CategoryID,
		Status:            string(s.Status),
		ConsecutiveErrors: s.ConsecutiveErrors,
		ErrorMessage:      s.ErrorMessage,
		LastFetchedAt:     s.LastFetchedAt,
	}
}

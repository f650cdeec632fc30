package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/model"
)

// ReactionServiceInterface はリアクションハンドラーが必要とするサービスインターフェース。
type ReactionServiceInterface interface {
	ToggleReaction(ctx context.Context, userID, postID string, reactionType model.ReactionType) (*model.ToggleResult, error)
	ToggleBookmark(ctx context.Context, userID, postID string) (*model.ToggleResult, error)
	ListBookmarks(ctx context.Context, userID string) ([]model.PostWithMeta, error)
}

// ReactionHandler はリアクション・ブックマーク関連のHTTPハンドラー。
type ReactionHandler struct {
	service ReactionServiceInterface
}

// NewReactionHandler はReactionHandlerを生成する。
func NewReactionHandler(service ReactionServiceInterface) *ReactionHandler {
	return &ReactionHandler{service: service}
}

type toggleResponse struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// ToggleLike はいいねをトグルする。
// POST /api/posts/{id}/like
func (h *ReactionHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	result, err := h.service.ToggleReaction(r.Context(), userID, chi.URLParam(r, "id"), model.ReactionTypeLike)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{Active: result.Active, Count: result.Count})
}

// ToggleBookmark はブックマークをトグルする。
// POST /api/posts/{id}/bookmark
func (h *ReactionHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	result, err := h.service.ToggleBookmark(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{Active: result.Active, Count: result.Count})
}

// ListBookmarks は自分のブックマーク済み記事を返す。
// GET /api/bookmarks
func (h *ReactionHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	posts, err := h.service.ListBookmarks(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]postResponse, 0, len(posts))
	for i := range posts {
		resp = append(resp, toPostMetaResponse(&posts[i], false))
	}
	writeJSON(w, http.StatusOK, resp)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/comment"
	"github.com/hitoshi/blogman/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	ListByPost(ctx context.Context, postID string) ([]model.CommentThread, error)
	Create(ctx context.Context, userID string, input comment.CreateInput) (*model.Comment, error)
	Report(ctx context.Context, commentID string) error
	ClearReport(ctx context.Context, commentID string) error
	Delete(ctx context.Context, commentID string) error
	ListReported(ctx context.Context) ([]model.CommentWithUser, error)
}

// CommentHandler はコメント関連のHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

type createCommentRequest struct {
	ParentID string `json:"parent_id"`
	Content  string `json:"content"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Reported  bool      `json:"reported,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type commentThreadResponse struct {
	commentResponse
	Replies []commentResponse `json:"replies"`
}

// ListByPost は記事のコメントをスレッド構造で返す。
// GET /api/posts/{id}/comments
func (h *CommentHandler) ListByPost(w http.ResponseWriter, r *http.Request) {
	threads, err := h.service.ListByPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]commentThreadResponse, 0, len(threads))
	for _, t := range threads {
		thread := commentThreadResponse{
			commentResponse: toCommentResponse(t.CommentWithUser),
			Replies:         make([]commentResponse, 0, len(t.Replies)),
		}
		for _, reply := range t.Replies {
			thread.Replies = append(thread.Replies, toCommentResponse(reply))
		}
		resp = append(resp, thread)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はコメントを投稿する。
// POST /api/posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	var req createCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), userID, comment.CreateInput{
		PostID:   chi.URLParam(r, "id"),
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, commentResponse{
		ID:        created.ID,
		PostID:    created.PostID,
		UserID:    created.UserID,
		ParentID:  created.ParentID,
		Content:   created.Content,
		CreatedAt: created.CreatedAt,
	})
}

// Report はコメントを通報する。
// POST /api/comments/{id}/report
func (h *CommentHandler) Report(w http.ResponseWriter, r *http.Request) {
	if userID := requireUserID(w, r); userID == "" {
		return
	}

	if err := h.service.Report(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListReported は通報済みコメントの一覧を返す（管理者）。
// GET /api/admin/comments?reported=true
func (h *CommentHandler) ListReported(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListReported(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, toCommentResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearReport は通報フラグを解除する（管理者）。
// DELETE /api/admin/comments/{id}/report
func (h *CommentHandler) ClearReport(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearReport(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete はコメントを削除する（管理者）。返信も削除される。
// DELETE /api/admin/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toCommentResponse(c model.CommentWithUser) commentResponse {
	return commentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		Username:  c.Username,
		AvatarURL: c.AvatarURL,
		Reported:  c.Reported,
		CreatedAt: c.CreatedAt,
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/blogman/internal/comment"
	"github.com/hitoshi/blogman/internal/model"
)

// mockCommentService はCommentServiceInterfaceのモック実装。
type mockCommentService struct {
	listByPostFn   func(ctx context.Context, postID string) ([]model.CommentThread, error)
	createFn       func(ctx context.Context, userID string, input comment.CreateInput) (*model.Comment, error)
	reportFn       func(ctx context.Context, commentID string) error
	clearReportFn  func(ctx context.Context, commentID string) error
	deleteFn       func(ctx context.Context, commentID string) error
	listReportedFn func(ctx context.Context) ([]model.CommentWithUser, error)
}

func (m *mockCommentService) ListByPost(ctx context.Context, postID string) ([]model.CommentThread, error) {
	if m.listByPostFn != nil {
		return m.listByPostFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockCommentService) Create(ctx context.Context, userID string, input comment.CreateInput) (*model.Comment, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockCommentService) Report(ctx context.Context, commentID string) error {
	if m.reportFn != nil {
		return m.reportFn(ctx, commentID)
	}
	return nil
}

func (m *mockCommentService) ClearReport(ctx context.Context, commentID string) error {
	if m.clearReportFn != nil {
		return m.clearReportFn(ctx, commentID)
	}
	return nil
}

func (m *mockCommentService) Delete(ctx context.Context, commentID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, commentID)
	}
	return nil
}

func (m *mockCommentService) ListReported(ctx context.Context) ([]model.CommentWithUser, error) {
	if m.listReportedFn != nil {
		return m.listReportedFn(ctx)
	}
	return nil, nil
}

// --- GET /api/posts/:id/comments テスト ---

func TestCommentHandler_ListByPost_ReturnsThreads(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := &mockCommentService{
		listByPostFn: func(ctx context.Context, postID string) ([]model.CommentThread, error) {
			if postID != "post-1" {
				t.Errorf("postID = %q, want %q", postID, "post-1")
			}
			return []model.CommentThread{
				{
					CommentWithUser: model.CommentWithUser{
						Comment: model.Comment{
							ID:        "comment-1",
							PostID:    "post-1",
							UserID:    "user-123",
							Content:   "面白い記事でした",
							CreatedAt: now,
						},
						Username: "hitoshi",
					},
					Replies: []model.CommentWithUser{
						{
							Comment: model.Comment{
								ID:        "comment-2",
								PostID:    "post-1",
								UserID:    "user-456",
								ParentID:  "comment-1",
								Content:   "同感です",
								CreatedAt: now.Add(time.Minute),
							},
							Username: "taro",
						},
					},
				},
			}, nil
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts/post-1/comments", nil)
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.ListByPost(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("threads length = %d, want 1", len(result))
	}
	if result[0]["id"] != "comment-1" {
		t.Errorf("thread id = %v, want %q", result[0]["id"], "comment-1")
	}

	replies, ok := result[0]["replies"].([]interface{})
	if !ok {
		t.Fatal("expected replies array in thread")
	}
	if len(replies) != 1 {
		t.Errorf("replies length = %d, want 1", len(replies))
	}
}

func TestCommentHandler_ListByPost_EmptyResult_ReturnsEmptyArray(t *testing.T) {
	h := NewCommentHandler(&mockCommentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts/post-1/comments", nil)
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.ListByPost(w, req)

	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

// --- POST /api/posts/:id/comments テスト ---

func TestCommentHandler_Create_Success(t *testing.T) {
	svc := &mockCommentService{
		createFn: func(ctx context.Context, userID string, input comment.CreateInput) (*model.Comment, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if input.PostID != "post-1" {
				t.Errorf("postID = %q, want %q", input.PostID, "post-1")
			}
			if input.ParentID != "" {
				t.Errorf("parentID = %q, want empty", input.ParentID)
			}
			return &model.Comment{
				ID:      "comment-new",
				PostID:  input.PostID,
				UserID:  userID,
				Content: input.Content,
			}, nil
		},
	}

	h := NewCommentHandler(svc)

	body := `{"content":"いい記事ですね"}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts/post-1/comments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["id"] != "comment-new" {
		t.Errorf("id = %v, want %q", result["id"], "comment-new")
	}
}

func TestCommentHandler_Create_NoUserID_DoesNotCallService(t *testing.T) {
	called := false
	svc := &mockCommentService{
		createFn: func(ctx context.Context, userID string, input comment.CreateInput) (*model.Comment, error) {
			called = true
			return nil, nil
		},
	}

	h := NewCommentHandler(svc)

	body := `{"content":"いい記事ですね"}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts/post-1/comments", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "post-1")
	// ユーザーIDを注入しない
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if called {
		t.Error("expected service not to be called for unauthenticated request")
	}
}

func TestCommentHandler_Create_ReplyToReply_ReturnsBadRequest(t *testing.T) {
	svc := &mockCommentService{
		createFn: func(ctx context.Context, userID string, input comment.CreateInput) (*model.Comment, error) {
			return nil, model.NewCommentDepthError()
		},
	}

	h := NewCommentHandler(svc)

	body := `{"parent_id":"reply-1","content":"返信への返信"}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts/post-1/comments", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "post-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeCommentDepth {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeCommentDepth)
	}
}

func TestCommentHandler_Create_UnknownPost_ReturnsNotFound(t *testing.T) {
	svc := &mockCommentService{
		createFn: func(ctx context.Context, userID string, input comment.CreateInput) (*model.Comment, error) {
			return nil, model.NewPostNotFoundError(input.PostID)
		},
	}

	h := NewCommentHandler(svc)

	body := `{"content":"コメント"}`
	req := httptest.NewRequest(http.MethodPost, "/api/posts/nonexistent/comments", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "nonexistent")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- POST /api/comments/:id/report テスト ---

func TestCommentHandler_Report_Success(t *testing.T) {
	reported := ""
	svc := &mockCommentService{
		reportFn: func(ctx context.Context, commentID string) error {
			reported = commentID
			return nil
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/comments/comment-1/report", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "comment-1")
	w := httptest.NewRecorder()

	h.Report(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if reported != "comment-1" {
		t.Errorf("reported = %q, want %q", reported, "comment-1")
	}
}

func TestCommentHandler_Report_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewCommentHandler(&mockCommentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/comments/comment-1/report", nil)
	req = withChiURLParam(req, "id", "comment-1")
	w := httptest.NewRecorder()

	h.Report(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- 管理エンドポイントのテスト ---

func TestCommentHandler_ListReported_ReturnsComments(t *testing.T) {
	svc := &mockCommentService{
		listReportedFn: func(ctx context.Context) ([]model.CommentWithUser, error) {
			return []model.CommentWithUser{
				{
					Comment:  model.Comment{ID: "comment-1", PostID: "post-1", Reported: true},
					Username: "spammer",
				},
			}, nil
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/comments", nil)
	w := httptest.NewRecorder()

	h.ListReported(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("comments length = %d, want 1", len(result))
	}
	if result[0]["reported"] != true {
		t.Errorf("reported = %v, want true", result[0]["reported"])
	}
}

func TestCommentHandler_ClearReport_Success(t *testing.T) {
	cleared := ""
	svc := &mockCommentService{
		clearReportFn: func(ctx context.Context, commentID string) error {
			cleared = commentID
			return nil
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/comments/comment-1/report", nil)
	req = withChiURLParam(req, "id", "comment-1")
	w := httptest.NewRecorder()

	h.ClearReport(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if cleared != "comment-1" {
		t.Errorf("cleared = %q, want %q", cleared, "comment-1")
	}
}

func TestCommentHandler_Delete_UnknownComment_ReturnsNotFound(t *testing.T) {
	svc := &mockCommentService{
		deleteFn: func(ctx context.Context, commentID string) error {
			return model.NewCommentNotFoundError(commentID)
		},
	}

	h := NewCommentHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/comments/nonexistent", nil)
	req = withChiURLParam(req, "id", "nonexistent")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

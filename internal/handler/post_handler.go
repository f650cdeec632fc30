package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/post"
	"github.com/hitoshi/blogman/internal/search"
)

// maxPostImageUploadBytes は記事画像アップロードのmultipart全体の上限。
const maxPostImageUploadBytes = 8 << 20

// PostServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context, input post.ListInput) ([]model.PostWithMeta, error)
	GetBySlug(ctx context.Context, slug string) (*model.PostWithMeta, error)
	Search(ctx context.Context, query, categorySlug string, limit int) ([]search.Result, int, error)
	Create(ctx context.Context, authorID string, input post.CreateInput) (*model.Post, error)
	Update(ctx context.Context, postID string, input post.CreateInput) (*model.Post, error)
	Delete(ctx context.Context, postID string) error
	GetStats(ctx context.Context, comments post.CommentCounter) (*post.Stats, error)
}

// PostImageUploader は記事画像アップロードのインターフェース。
// storage.ObjectStoreServiceの部分集合として定義する。
type PostImageUploader interface {
	UploadPostImage(ctx context.Context, postID string, body io.Reader, size int64, contentType string) (string, error)
}

// PostHandler は記事関連のHTTPハンドラー。
type PostHandler struct {
	service  PostServiceInterface
	comments post.CommentCounter
	uploader PostImageUploader // nil可（画像アップロード無効）
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, comments post.CommentCounter, uploader PostImageUploader) *PostHandler {
	return &PostHandler{service: service, comments: comments, uploader: uploader}
}

type postRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID string `json:"category_id"`
	CoverImage string `json:"cover_image"`
	Published  bool   `json:"published"`
	Featured   bool   `json:"featured"`
}

type postResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Content        string     `json:"content,omitempty"`
	Excerpt        string     `json:"excerpt"`
	AuthorID       string     `json:"author_id"`
	AuthorUsername string     `json:"author_username,omitempty"`
	AuthorAvatar   string     `json:"author_avatar,omitempty"`
	CategoryID     string     `json:"category_id,omitempty"`
	CategoryName   string     `json:"category_name,omitempty"`
	CategorySlug   string     `json:"category_slug,omitempty"`
	CoverImage     string     `json:"cover_image,omitempty"`
	Published      bool       `json:"published"`
	Featured       bool       `json:"featured"`
	PublishDate    *time.Time `json:"publish_date,omitempty"`
	ReadTime       int        `json:"read_time"`
	Views          int        `json:"views"`
	LikeCount      int        `json:"like_count"`
	CommentCount   int        `json:"comment_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// List は公開記事の一覧を返す。
// GET /api/posts?category=&featured=&cursor=&limit=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// AdminList は下書きを含む記事一覧を返す（管理者）。
// GET /api/admin/posts
func (h *PostHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *PostHandler) list(w http.ResponseWriter, r *http.Request, includeDrafts bool) {
	q := r.URL.Query()

	input := post.ListInput{
		CategorySlug:  q.Get("category"),
		FeaturedOnly:  q.Get("featured") == "true",
		IncludeDrafts: includeDrafts,
	}
	if cursor := q.Get("cursor"); cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			handleServiceError(w, model.NewInvalidURLError("cursorはRFC3339形式で指定してください"))
			return
		}
		input.Cursor = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err == nil {
			input.Limit = n
		}
	}

	posts, err := h.service.List(r.Context(), input)
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

// GetBySlug は公開記事の詳細を返し、閲覧数を加算する。
// GET /api/posts/{slug}
func (h *PostHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostMetaResponse(p, true))
}

// Search は公開記事を全文検索する。
// GET /api/search?q=&category=&limit=
func (h *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	results, total, err := h.service.Search(r.Context(), q.Get("q"), q.Get("category"), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   total,
	})
}

// Create は記事を作成する（管理者）。
// POST /api/admin/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), userID, post.CreateInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		CoverImage: req.CoverImage,
		Published:  req.Published,
		Featured:   req.Featured,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(created))
}

// Update は記事を更新する（管理者）。
// PUT /api/admin/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), post.CreateInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		CoverImage: req.CoverImage,
		Published:  req.Published,
		Featured:   req.Featured,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(updated))
}

// Delete は記事を削除する（管理者）。
// DELETE /api/admin/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage は記事画像をアップロードする（管理者）。
// POST /api/admin/posts/images （multipart/form-data、フィールド名 "image"、任意で "post_id"）
func (h *PostHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		handleServiceError(w, model.NewUploadFailedError("オブジェクトストレージが設定されていません"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPostImageUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		handleServiceError(w, model.NewUploadFailedError("imageフィールドが必要です"))
		return
	}
	defer file.Close()

	postID := r.FormValue("post_id")
	if postID == "" {
		postID = "shared"
	}

	url, err := h.uploader.UploadPostImage(r.Context(), postID, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		handleServiceError(w, model.NewUploadFailedError(err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Stats は管理ダッシュボード用の集計を返す（管理者）。
// GET /api/admin/stats
func (h *PostHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), h.comments)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		AuthorID:    p.AuthorID,
		CategoryID:  p.CategoryID,
		CoverImage:  p.CoverImage,
		Published:   p.Published,
		Featured:    p.Featured,
		PublishDate: p.PublishDate,
		ReadTime:    p.ReadTime,
		Views:       p.Views,
		CreatedAt:   p.CreatedAt,
	}
}

// toPostMetaResponse はメタ情報付きレスポンスに変換する。
// 一覧では転送量を抑えるため本文を省略する。
func toPostMetaResponse(p *model.PostWithMeta, includeContent bool) postResponse {
	resp := toPostResponse(&p.Post)
	if !includeContent {
		resp.Content = ""
	}
	resp.AuthorUsername = p.AuthorUsername
	resp.AuthorAvatar = p.AuthorAvatar
	resp.CategoryName = p.CategoryName
	resp.CategorySlug = p.CategorySlug
	resp.LikeCount = p.LikeCount
	resp.CommentCount = p.CommentCount
	return resp
}

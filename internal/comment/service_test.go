package comment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/blogman/internal/model"
)

type mockCommentRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.Comment, error)
	listThreadsFn func(ctx context.Context, postID string) ([]model.CommentThread, error)
	listReportedFn func(ctx context.Context) ([]model.CommentWithUser, error)
	createFn      func(ctx context.Context, comment *model.Comment) error
	setReportedFn func(ctx context.Context, id string, reported bool) error
	deleteFn      func(ctx context.Context, id string) error
}

func (m *mockCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockCommentRepo) ListThreadsByPost(ctx context.Context, postID string) ([]model.CommentThread, error) {
	return m.listThreadsFn(ctx, postID)
}
func (m *mockCommentRepo) ListReported(ctx context.Context) ([]model.CommentWithUser, error) {
	return m.listReportedFn(ctx)
}
func (m *mockCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	return m.createFn(ctx, comment)
}
func (m *mockCommentRepo) SetReported(ctx context.Context, id string, reported bool) error {
	return m.setReportedFn(ctx, id, reported)
}
func (m *mockCommentRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}
func (m *mockCommentRepo) CountReported(ctx context.Context) (int, error) { return 0, nil }
func (m *mockCommentRepo) CountAll(ctx context.Context) (int, error)      { return 0, nil }

type mockPostRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Post, error)
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockPostRepo) FindBySlug(ctx context.Context, slug string) (*model.PostWithMeta, error) {
	return nil, nil
}
func (m *mockPostRepo) FindByImportGUID(ctx context.Context, guid string) (*model.Post, error) {
	return nil, nil
}
func (m *mockPostRepo) List(ctx context.Context, filter model.PostFilter, cursor time.Time, limit int) ([]model.PostWithMeta, error) {
	return nil, nil
}
func (m *mockPostRepo) ListCorpus(ctx context.Context) ([]model.Post, error)    { return nil, nil }
func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error      { return nil }
func (m *mockPostRepo) Update(ctx context.Context, post *model.Post) error      { return nil }
func (m *mockPostRepo) Delete(ctx context.Context, id string) error             { return nil }
func (m *mockPostRepo) IncrementViews(ctx context.Context, id string) error     { return nil }
func (m *mockPostRepo) Search(ctx context.Context, query string, limit int) ([]model.PostWithMeta, error) {
	return nil, nil
}
func (m *mockPostRepo) CountByPublished(ctx context.Context) (int, int, error) { return 0, 0, nil }

type mockCache struct {
	getFn        func(ctx context.Context, postID string) ([]model.CommentThread, bool, error)
	setFn        func(ctx context.Context, postID string, threads []model.CommentThread) error
	invalidateFn func(ctx context.Context, postID string) error
}

func (m *mockCache) Get(ctx context.Context, postID string) ([]model.CommentThread, bool, error) {
	return m.getFn(ctx, postID)
}
func (m *mockCache) Set(ctx context.Context, postID string, threads []model.CommentThread) error {
	return m.setFn(ctx, postID, threads)
}
func (m *mockCache) Invalidate(ctx context.Context, postID string) error {
	return m.invalidateFn(ctx, postID)
}

type mockMetrics struct {
	created  int
	reported int
}

func (m *mockMetrics) RecordCommentCreated()  { m.created++ }
func (m *mockMetrics) RecordCommentReported() { m.reported++ }

// passthroughSanitizer はサニタイズをバイパスするテスト用実装。
type passthroughSanitizer struct{}

func (passthroughSanitizer) SanitizeComment(rawHTML string) string { return rawHTML }

func publishedPostRepo() *mockPostRepo {
	return &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, Published: true}, nil
		},
	}
}

func TestCreate_TopLevelComment(t *testing.T) {
	var created *model.Comment
	commentRepo := &mockCommentRepo{
		createFn: func(ctx context.Context, comment *model.Comment) error {
			created = comment
			return nil
		},
	}
	metrics := &mockMetrics{}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, nil, metrics)

	comment, err := svc.Create(context.Background(), "user-1", CreateInput{
		PostID:  "post-1",
		Content: "いい記事でした",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if comment.IsReply() {
		t.Error("top-level comment should not be a reply")
	}
	if created == nil {
		t.Fatal("comment should be persisted")
	}
	if metrics.created != 1 {
		t.Errorf("created metric = %d, want 1", metrics.created)
	}
}

func TestCreate_ReplyToReplyRejected(t *testing.T) {
	commentRepo := &mockCommentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Comment, error) {
			// 親自体が返信（ParentID非空）
			return &model.Comment{ID: id, PostID: "post-1", ParentID: "root-comment"}, nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		PostID:   "post-1",
		ParentID: "reply-1",
		Content:  "返信への返信",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCommentDepth {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeCommentDepth)
	}
}

func TestCreate_ParentOnDifferentPostRejected(t *testing.T) {
	commentRepo := &mockCommentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Comment, error) {
			return &model.Comment{ID: id, PostID: "other-post"}, nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		PostID:   "post-1",
		ParentID: "parent-1",
		Content:  "返信",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeParentMismatch {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeParentMismatch)
	}
}

func TestCreate_UnknownParentRejected(t *testing.T) {
	commentRepo := &mockCommentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Comment, error) {
			return nil, nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		PostID:   "post-1",
		ParentID: "missing",
		Content:  "返信",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCommentNotFound {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeCommentNotFound)
	}
}

func TestCreate_UnpublishedPostRejected(t *testing.T) {
	postRepo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, Published: false}, nil
		},
	}
	svc := NewService(&mockCommentRepo{}, postRepo, passthroughSanitizer{}, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		PostID:  "draft-post",
		Content: "コメント",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePostNotFound {
		t.Errorf("err = %v, want code %s", err, model.ErrCodePostNotFound)
	}
}

func TestCreate_SanitizedToEmptyRejected(t *testing.T) {
	svc := NewService(&mockCommentRepo{}, publishedPostRepo(), stripAllSanitizer{}, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		PostID:  "post-1",
		Content: "<script>alert(1)</script>",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyContent {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeEmptyContent)
	}
}

// stripAllSanitizer は全タグを除去した結果が空になるケースを模倣する。
type stripAllSanitizer struct{}

func (stripAllSanitizer) SanitizeComment(rawHTML string) string { return "" }

func TestCreate_InvalidatesCache(t *testing.T) {
	invalidated := ""
	cache := &mockCache{
		invalidateFn: func(ctx context.Context, postID string) error {
			invalidated = postID
			return nil
		},
	}
	commentRepo := &mockCommentRepo{
		createFn: func(ctx context.Context, comment *model.Comment) error { return nil },
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, cache, nil)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		PostID:  "post-1",
		Content: "コメント",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if invalidated != "post-1" {
		t.Errorf("invalidated = %q, want %q", invalidated, "post-1")
	}
}

func TestListByPost_UnknownPostReturnsNotFound(t *testing.T) {
	postRepo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return nil, nil
		},
	}
	listCalled := false
	commentRepo := &mockCommentRepo{
		listThreadsFn: func(ctx context.Context, postID string) ([]model.CommentThread, error) {
			listCalled = true
			return []model.CommentThread{}, nil
		},
	}
	svc := NewService(commentRepo, postRepo, passthroughSanitizer{}, nil, nil)

	_, err := svc.ListByPost(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePostNotFound {
		t.Errorf("err = %v, want code %s", err, model.ErrCodePostNotFound)
	}
	if listCalled {
		t.Error("unknown post should not reach the comment store")
	}
}

func TestListByPost_UnpublishedPostReturnsNotFound(t *testing.T) {
	postRepo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, Published: false}, nil
		},
	}
	svc := NewService(&mockCommentRepo{}, postRepo, passthroughSanitizer{}, nil, nil)

	_, err := svc.ListByPost(context.Background(), "draft-post")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePostNotFound {
		t.Errorf("err = %v, want code %s", err, model.ErrCodePostNotFound)
	}
}

func TestListByPost_CacheHitSkipsDB(t *testing.T) {
	dbCalled := false
	commentRepo := &mockCommentRepo{
		listThreadsFn: func(ctx context.Context, postID string) ([]model.CommentThread, error) {
			dbCalled = true
			return nil, nil
		},
	}
	cached := []model.CommentThread{
		{CommentWithUser: model.CommentWithUser{Comment: model.Comment{ID: "c1"}}},
	}
	cache := &mockCache{
		getFn: func(ctx context.Context, postID string) ([]model.CommentThread, bool, error) {
			return cached, true, nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, cache, nil)

	threads, err := svc.ListByPost(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("ListByPost() error = %v", err)
	}
	if dbCalled {
		t.Error("cache hit should not query the database")
	}
	if len(threads) != 1 || threads[0].ID != "c1" {
		t.Errorf("threads = %+v, want cached entry", threads)
	}
}

func TestListByPost_CacheMissPopulatesCache(t *testing.T) {
	stored := false
	cache := &mockCache{
		getFn: func(ctx context.Context, postID string) ([]model.CommentThread, bool, error) {
			return nil, false, nil
		},
		setFn: func(ctx context.Context, postID string, threads []model.CommentThread) error {
			stored = true
			return nil
		},
	}
	commentRepo := &mockCommentRepo{
		listThreadsFn: func(ctx context.Context, postID string) ([]model.CommentThread, error) {
			return []model.CommentThread{}, nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, cache, nil)

	if _, err := svc.ListByPost(context.Background(), "post-1"); err != nil {
		t.Fatalf("ListByPost() error = %v", err)
	}
	if !stored {
		t.Error("cache miss should populate the cache")
	}
}

func TestListByPost_CacheErrorFallsBackToDB(t *testing.T) {
	cache := &mockCache{
		getFn: func(ctx context.Context, postID string) ([]model.CommentThread, bool, error) {
			return nil, false, errors.New("connection refused")
		},
		setFn: func(ctx context.Context, postID string, threads []model.CommentThread) error {
			return errors.New("connection refused")
		},
	}
	commentRepo := &mockCommentRepo{
		listThreadsFn: func(ctx context.Context, postID string) ([]model.CommentThread, error) {
			return []model.CommentThread{
				{CommentWithUser: model.CommentWithUser{Comment: model.Comment{ID: "c1"}}},
			}, nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, cache, nil)

	threads, err := svc.ListByPost(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("ListByPost() error = %v", err)
	}
	if len(threads) != 1 {
		t.Errorf("len(threads) = %d, want 1", len(threads))
	}
}

func TestReport_SetsFlagAndRecordsMetric(t *testing.T) {
	var reportedID string
	var reportedFlag bool
	commentRepo := &mockCommentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Comment, error) {
			return &model.Comment{ID: id, PostID: "post-1"}, nil
		},
		setReportedFn: func(ctx context.Context, id string, reported bool) error {
			reportedID = id
			reportedFlag = reported
			return nil
		},
	}
	metrics := &mockMetrics{}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, nil, metrics)

	if err := svc.Report(context.Background(), "c1"); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if reportedID != "c1" || !reportedFlag {
		t.Errorf("SetReported(%q, %v), want (c1, true)", reportedID, reportedFlag)
	}
	if metrics.reported != 1 {
		t.Errorf("reported metric = %d, want 1", metrics.reported)
	}
}

func TestReport_UnknownComment(t *testing.T) {
	commentRepo := &mockCommentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Comment, error) {
			return nil, nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, nil, nil)

	err := svc.Report(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCommentNotFound {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeCommentNotFound)
	}
}

func TestClearReport_ClearsFlag(t *testing.T) {
	var reportedFlag = true
	commentRepo := &mockCommentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Comment, error) {
			return &model.Comment{ID: id, PostID: "post-1", Reported: true}, nil
		},
		setReportedFn: func(ctx context.Context, id string, reported bool) error {
			reportedFlag = reported
			return nil
		},
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, nil, nil)

	if err := svc.ClearReport(context.Background(), "c1"); err != nil {
		t.Fatalf("ClearReport() error = %v", err)
	}
	if reportedFlag {
		t.Error("reported flag should be cleared")
	}
}

func TestDelete_InvalidatesCache(t *testing.T) {
	invalidated := ""
	cache := &mockCache{
		invalidateFn: func(ctx context.Context, postID string) error {
			invalidated = postID
			return nil
		},
	}
	commentRepo := &mockCommentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Comment, error) {
			return &model.Comment{ID: id, PostID: "post-9"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	svc := NewService(commentRepo, publishedPostRepo(), passthroughSanitizer{}, cache, nil)

	if err := svc.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if invalidated != "post-9" {
		t.Errorf("invalidated = %q, want %q", invalidated, "post-9")
	}
}

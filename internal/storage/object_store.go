// Package storage はアバター画像・記事画像のオブジェクトストレージを提供する。
// S3互換API（MinIO）を使用する。
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// バケット名。起動時にEnsureBucketsで作成される。
const (
	BucketAvatars    = "avatars"
	BucketPostImages = "post-images"
)

// allowedImageTypes はアップロードを許可する画像のContent-Type。
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStoreService は画像アップロードのインターフェースを定義する。
type ObjectStoreService interface {
	// UploadAvatar はユーザーのアバター画像を保存し、公開URLを返す。
	// 同一ユーザーの再アップロードは上書きされる。
	UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64, contentType string) (string, error)

	// UploadPostImage は記事画像を保存し、公開URLを返す。
	// オブジェクトキーは衝突しないようUUIDを含む。
	UploadPostImage(ctx context.Context, postID string, body io.Reader, size int64, contentType string) (string, error)
}

// Config はオブジェクトストレージの接続設定。
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL は保存オブジェクトの公開ベースURL。
	// リバースプロキシ経由で配信する場合はEndpointと異なる。
	PublicURL string
}

// ObjectStore はObjectStoreServiceのMinIO実装。
type ObjectStore struct {
	client    *minio.Client
	publicURL string
}

// NewObjectStore はMinIOクライアントを生成する。
func NewObjectStore(cfg Config) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("オブジェクトストレージへの接続に失敗しました: %w", err)
	}

	return &ObjectStore{
		client:    client,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// EnsureBuckets は必要なバケットを作成する。既存の場合は何もしない。
// アプリ起動時に1回呼ばれる。
func (s *ObjectStore) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{BucketAvatars, BucketPostImages} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("バケットの確認に失敗しました: %w", err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("バケットの作成に失敗しました: %w", err)
		}
		slog.Info("バケットを作成しました", slog.String("bucket", bucket))
	}
	return nil
}

// UploadAvatar はユーザーのアバター画像を保存し、公開URLを返す。
func (s *ObjectStore) UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64, contentType string) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("許可されていない画像形式です: %s", contentType)
	}

	// ユーザーIDをキーにすることで再アップロード時に上書きされる
	objectName := userID + ext
	return s.put(ctx, BucketAvatars, objectName, body, size, contentType)
}

// UploadPostImage は記事画像を保存し、公開URLを返す。
func (s *ObjectStore) UploadPostImage(ctx context.Context, postID string, body io.Reader, size int64, contentType string) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("許可されていない画像形式です: %s", contentType)
	}

	objectName := path.Join(postID, uuid.NewString()+ext)
	return s.put(ctx, BucketPostImages, objectName, body, size, contentType)
}

func (s *ObjectStore) put(ctx context.Context, bucket, objectName string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, bucket, objectName, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("オブジェクトの保存に失敗しました: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, objectName), nil
}

var _ ObjectStoreService = (*ObjectStore)(nil)

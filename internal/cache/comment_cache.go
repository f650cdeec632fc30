// Package cache は記事コメント一覧のRedisキャッシュを提供する。
//
// コメント一覧は記事閲覧のたびに読まれる一方、書き込みは稀なため、
// 記事IDをキーにスレッド構造ごとキャッシュする。
// コメントの作成・削除・モデレーション時にキーを無効化する。
// 各メソッドはRedis障害時にエラーを返すが、呼び出し側は
// キャッシュ不在として扱いDBへフォールバックする。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/blogman/internal/model"
)

// commentKeyPrefix はコメントキャッシュのRedisキープレフィックス。
const commentKeyPrefix = "comments:"

// defaultTTL はキャッシュエントリのデフォルト有効期間。
// 無効化漏れがあっても最大この時間で整合する。
const defaultTTL = 10 * time.Minute

// CommentCache は記事ごとのコメントスレッドのキャッシュ。
type CommentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCommentCache はRedis URLからCommentCacheを生成する。
// 起動時に接続確認を行う。
func NewCommentCache(redisURL string) (*CommentCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis URLのパースに失敗しました: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisへの接続に失敗しました: %w", err)
	}

	return &CommentCache{client: client, ttl: defaultTTL}, nil
}

// NewCommentCacheWithClient は既存のRedisクライアントからCommentCacheを生成する。
// テストでminiredisを差し込むために使用する。
func NewCommentCacheWithClient(client *redis.Client) *CommentCache {
	return &CommentCache{client: client, ttl: defaultTTL}
}

func (c *CommentCache) key(postID string) string {
	return commentKeyPrefix + postID
}

// Get は記事のコメントスレッドをキャッシュから取得する。
// キャッシュミスの場合は (nil, false, nil) を返す。
func (c *CommentCache) Get(ctx context.Context, postID string) ([]model.CommentThread, bool, error) {
	data, err := c.client.Get(ctx, c.key(postID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("コメントキャッシュの取得に失敗しました: %w", err)
	}

	var threads []model.CommentThread
	if err := json.Unmarshal([]byte(data), &threads); err != nil {
		// 壊れたエントリはミス扱いにして上書きさせる
		return nil, false, nil
	}
	return threads, true, nil
}

// Set は記事のコメントスレッドをキャッシュに保存する。
func (c *CommentCache) Set(ctx context.Context, postID string, threads []model.CommentThread) error {
	data, err := json.Marshal(threads)
	if err != nil {
		return fmt.Errorf("コメントスレッドのシリアライズに失敗しました: %w", err)
	}
	if err := c.client.Set(ctx, c.key(postID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("コメントキャッシュの保存に失敗しました: %w", err)
	}
	return nil
}

// Invalidate は記事のコメントキャッシュを無効化する。
// コメントの作成・削除・通報状態の変更時に呼ばれる。
func (c *CommentCache) Invalidate(ctx context.Context, postID string) error {
	if err := c.client.Del(ctx, c.key(postID)).Err(); err != nil {
		return fmt.Errorf("コメントキャッシュの無効化に失敗しました: %w", err)
	}
	return nil
}

// Ping はRedisへの疎通を確認する。ヘルスチェックで使用する。
func (c *CommentCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close はRedisクライアントを閉じる。
func (c *CommentCache) Close() error {
	return c.client.Close()
}

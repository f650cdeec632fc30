package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

// idxPosts は記事インデックスのUID。
const idxPosts = "blogman_posts"

// healthInterval はMeilisearchの疎通確認周期。
const healthInterval = 10 * time.Second

// Meili はMeilisearchによるSearcher/Indexerの実装。
// 疎通状態をバックグラウンドで監視し、復帰時にインデックス設定をやり直す。
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili はMeilisearchクライアントを生成しインデックスを設定する。
// 初回接続に失敗しても生成は成功し、呼び出し側はフォールバック検索で継続する。
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		slog.Warn("meilisearchに接続できません（フォールバック検索で継続）",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxPosts,
		PrimaryKey: "id",
	}); err != nil {
		// 既存インデックスの場合もエラーになるためログのみ
		slog.Debug("インデックス作成", slog.String("error", err.Error()))
	}

	index := m.client.Index(idxPosts)

	filterable := []interface{}{"categorySlug", "published"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("filterable属性の更新に失敗しました", slog.String("error", err.Error()))
	}

	searchable := []string{"title", "excerpt", "content"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		slog.Warn("searchable属性の更新に失敗しました", slog.String("error", err.Error()))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				slog.Info("meilisearchが復帰しました。インデックスを再設定します")
				m.configureIndex()
			}
		}
	}
}

// Close はバックグラウンドの監視ループを停止する。
func (m *Meili) Close() {
	close(m.done)
}

// Healthy はMeilisearchに到達可能かを返す。
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search は公開記事を全文検索する。
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	filters := []string{"published = true"}
	if q.CategorySlug != "" {
		filters = append(filters, fmt.Sprintf("categorySlug = %q", q.CategorySlug))
	}

	resp, err := m.client.Index(idxPosts).Search(q.Text, &meili.SearchRequest{
		Limit:                 limit,
		Filter:                filters,
		AttributesToCrop:      []string{"content"},
		CropLength:            30,
		AttributesToHighlight: []string{"title", "content"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch検索に失敗しました: %w", err)
	}

	var results []Result
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:      decodeString(hit, "id"),
		Title:   decodeString(hit, "title"),
		Slug:    decodeString(hit, "slug"),
		Snippet: decodeString(hit, "excerpt"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// IndexPost は記事をインデックスに登録または更新する。
func (m *Meili) IndexPost(record PostRecord) error {
	if !m.healthy.Load() {
		return nil // 復帰時の再インデックスに任せる
	}
	if _, err := m.client.Index(idxPosts).AddDocuments([]PostRecord{record}, nil); err != nil {
		return fmt.Errorf("記事のインデックス登録に失敗しました: %w", err)
	}
	return nil
}

// DeletePost は記事をインデックスから削除する。
func (m *Meili) DeletePost(id string) error {
	if !m.healthy.Load() {
		return nil
	}
	if _, err := m.client.Index(idxPosts).DeleteDocument(id, nil); err != nil {
		return fmt.Errorf("記事のインデックス削除に失敗しました: %w", err)
	}
	return nil
}

var (
	_ Searcher = (*Meili)(nil)
	_ Indexer  = (*Meili)(nil)
)

package search

import "log/slog"

// Service はMeilisearchを優先し、不調時はPostgreSQLへ切り替えるファサード。
type Service struct {
	meili    *Meili
	fallback *PgFallback
}

// NewService は検索サービスを生成する。
// Meilisearchが未設定の場合、meiliはnilでよい。
func NewService(meili *Meili, fallback *PgFallback) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search はMeilisearchが健全なら使用し、失敗時はフォールバックに切り替える。
func (s *Service) Search(q Query) ([]Result, int, error) {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return results, total, nil
		}
		slog.Warn("meilisearch検索に失敗したためフォールバックします",
			slog.String("error", err.Error()),
		)
	}
	return s.fallback.Search(q)
}

// IndexPost は記事をインデックスに反映する（非同期・ベストエフォート）。
// インデックス失敗は検索結果の鮮度にしか影響しないため、呼び出し元には返さない。
func (s *Service) IndexPost(record PostRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPost(record); err != nil {
			slog.Warn("記事のインデックス登録に失敗しました",
				slog.String("post_id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// DeletePost は記事をインデックスから削除する（非同期・ベストエフォート）。
func (s *Service) DeletePost(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePost(id); err != nil {
			slog.Warn("記事のインデックス削除に失敗しました",
				slog.String("post_id", id),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Package importrun は外部フィード取り込みの定期実行を提供する。
// 一定間隔のティッカーでアクティブなインポート元を巡回し、
// 新着記事を下書きとして取り込む。
package importrun

import (
	"context"
	"log/slog"
	"time"
)

// defaultInterval は取り込みサイクルのデフォルト実行間隔。
const defaultInterval = time.Hour

// Refresher はインポート元の一括取り込みインターフェース。
// importer.Serviceの部分集合として定義する。
type Refresher interface {
	RefreshAll(ctx context.Context)
}

// Scheduler はフィード取り込みの定期実行を行う。
type Scheduler struct {
	refresher Refresher
	logger    *slog.Logger
	interval  time.Duration
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// intervalが0以下の場合はデフォルト値1時間を使用する。
func NewScheduler(refresher Refresher, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		refresher: refresher,
		logger:    logger,
		interval:  interval,
	}
}

// Start はティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("取り込みスケジューラを開始しました",
		slog.Duration("interval", s.interval),
	)

	// 起動直後に1回実行
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce は取り込みサイクルを1回実行する。
// 個々のインポート元の失敗はRefreshAll内で記録されるため、ここでは継続する。
func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()

	s.refresher.RefreshAll(ctx)

	duration := time.Since(start)
	s.logger.Info("取り込みサイクルが完了しました",
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー・サービス層・ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordCommentCreated()
	RecordCommentReported()
	RecordReactionToggle(reactionType string)
	RecordAILatency(duration time.Duration)
	RecordAIFailure(reason string)
	RecordImportedPosts(count int)
	RecordImportFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	commentCreated  prometheus.Counter
	commentReported prometheus.Counter
	reactionToggle  *prometheus.CounterVec
	aiLatency       prometheus.Histogram
	aiFailure       *prometheus.CounterVec
	importedPosts   prometheus.Counter
	importFailure   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		commentCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_comments_created_total",
			Help: "作成されたコメントの合計数",
		}),
		commentReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_comments_reported_total",
			Help: "通報されたコメントの合計数",
		}),
		reactionToggle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogman_reaction_toggles_total",
			Help: "リアクショントグル操作の合計数",
		}, []string{"reaction_type"}),
		aiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blogman_ai_latency_seconds",
			Help:    "生成AI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		aiFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogman_ai_failures_total",
			Help: "生成AI呼び出し失敗の合計数（原因別）",
		}, []string{"reason"}),
		importedPosts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_imported_posts_total",
			Help: "フィードからインポートされた下書き記事の合計数",
		}),
		importFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_import_failures_total",
			Help: "インポート元フェッチ失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.commentCreated,
		c.commentReported,
		c.reactionToggle,
		c.aiLatency,
		c.aiFailure,
		c.importedPosts,
		c.importFailure,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCommentCreated はコメント作成を記録する。
func (c *Collector) RecordCommentCreated() {
	c.commentCreated.Inc()
}

// RecordCommentReported はコメント通報を記録する。
func (c *Collector) RecordCommentReported() {
	c.commentReported.Inc()
}

// RecordReactionToggle はリアクショントグルを記録する。
func (c *Collector) RecordReactionToggle(reactionType string) {
	c.reactionToggle.WithLabelValues(reactionType).Inc()
}

// RecordAILatency は生成AI呼び出しのレイテンシを記録する。
func (c *Collector) RecordAILatency(duration time.Duration) {
	c.aiLatency.Observe(duration.Seconds())
}

// RecordAIFailure は生成AI呼び出し失敗を原因別に記録する。
func (c *Collector) RecordAIFailure(reason string) {
	c.aiFailure.WithLabelValues(reason).Inc()
}

// RecordImportedPosts はインポートされた下書き記事数を記録する。
func (c *Collector) RecordImportedPosts(count int) {
	c.importedPosts.Add(float64(count))
}

// RecordImportFailure はインポート元フェッチ失敗を記録する。
func (c *Collector) RecordImportFailure() {
	c.importFailure.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)

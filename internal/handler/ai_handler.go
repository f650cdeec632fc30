package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/blogman/internal/ai"
	"github.com/hitoshi/blogman/internal/model"
)

// CorpusLister は関連記事ランキングの候補となる公開記事一覧のインターフェース。
// repository.PostRepositoryの部分集合として定義する。
type CorpusLister interface {
	ListCorpus(ctx context.Context) ([]model.Post, error)
}

// AIMetrics はAI関連メトリクスの記録インターフェース。
type AIMetrics interface {
	RecordAILatency(duration time.Duration)
	RecordAIFailure(reason string)
}

// AIHandler は生成AIヘルパーのHTTPハンドラー。
type AIHandler struct {
	client  ai.ClientService
	corpus  CorpusLister
	metrics AIMetrics // nil可
}

// NewAIHandler はAIHandlerを生成する。
func NewAIHandler(client ai.ClientService, corpus CorpusLister, metrics AIMetrics) *AIHandler {
	return &AIHandler{client: client, corpus: corpus, metrics: metrics}
}

type aiRequest struct {
	Content string `json:"content"`
}

// Summarize は記事本文の要約を生成する。
// POST /api/ai/summarize
// 上流呼び出しの失敗は502で返し、リトライしない。
func (h *AIHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		handleServiceError(w, model.NewEmptyContentError())
		return
	}

	start := time.Now()
	result, err := h.client.Summarize(r.Context(), req.Content)
	h.recordLatency(start)
	if err != nil {
		h.recordFailure(err)
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

// Related は公開記事コーパスから関連記事のインデックスを返す。
// POST /api/ai/related
// パース失敗時は空リストに縮退する（呼び出し側は新着記事にフォールバックする）。
func (h *AIHandler) Related(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		handleServiceError(w, model.NewEmptyContentError())
		return
	}

	posts, err := h.corpus.ListCorpus(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	candidates := make([]ai.Candidate, 0, len(posts))
	for _, p := range posts {
		candidates = append(candidates, ai.Candidate{
			Title:   p.Title,
			Content: p.Content,
			Slug:    p.Slug,
		})
	}

	start := time.Now()
	indexes, err := h.client.FindRelated(r.Context(), req.Content, candidates)
	h.recordLatency(start)
	if err != nil {
		h.recordFailure(err)

		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeAIParseFailed {
			// パース失敗は縮退して空リストを返す
			writeJSON(w, http.StatusOK, map[string]any{"result": []int{}})
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": indexes})
}

func (h *AIHandler) recordLatency(start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordAILatency(time.Since(start))
	}
}

func (h *AIHandler) recordFailure(err error) {
	if h.metrics == nil {
		return
	}
	reason := "unknown"
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeUpstreamFailed:
			reason = "upstream"
		case model.ErrCodeAIParseFailed:
			reason = "parse"
		}
	}
	h.metrics.RecordAIFailure(reason)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/blogman/internal/ai"
	"github.com/hitoshi/blogman/internal/model"
)

// mockAIClient はai.ClientServiceのモック実装。
type mockAIClient struct {
	summarizeFn   func(ctx context.Context, content string) (string, error)
	findRelatedFn func(ctx context.Context, content string, candidates []ai.Candidate) ([]int, error)
}

func (m *mockAIClient) Summarize(ctx context.Context, content string) (string, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, content)
	}
	return "", nil
}

func (m *mockAIClient) FindRelated(ctx context.Context, content string, candidates []ai.Candidate) ([]int, error) {
	if m.findRelatedFn != nil {
		return m.findRelatedFn(ctx, content, candidates)
	}
	return nil, nil
}

// mockCorpusLister はCorpusListerのモック実装。
type mockCorpusLister struct {
	posts []model.Post
	err   error
}

func (m *mockCorpusLister) ListCorpus(ctx context.Context) ([]model.Post, error) {
	return m.posts, m.err
}

// mockAIMetrics はAIMetricsのモック実装。
type mockAIMetrics struct {
	latencies int
	failures  map[string]int
}

func (m *mockAIMetrics) RecordAILatency(d time.Duration) { m.latencies++ }
func (m *mockAIMetrics) RecordAIFailure(reason string) {
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[reason]++
}

// --- POST /api/ai/summarize テスト ---

func TestAIHandler_Summarize_Success(t *testing.T) {
	client := &mockAIClient{
		summarizeFn: func(ctx context.Context, content string) (string, error) {
			return "この記事はGoの並行処理を解説している。", nil
		},
	}
	metrics := &mockAIMetrics{}

	h := NewAIHandler(client, &mockCorpusLister{}, metrics)

	body := `{"content":"<p>長い記事本文...</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/summarize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Summarize(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["result"] != "この記事はGoの並行処理を解説している。" {
		t.Errorf("result = %q, want summary text", result["result"])
	}
	if metrics.latencies != 1 {
		t.Errorf("latency recordings = %d, want 1", metrics.latencies)
	}
}

func TestAIHandler_Summarize_EmptyContent_ReturnsBadRequest(t *testing.T) {
	called := false
	client := &mockAIClient{
		summarizeFn: func(ctx context.Context, content string) (string, error) {
			called = true
			return "", nil
		},
	}

	h := NewAIHandler(client, &mockCorpusLister{}, nil)

	body := `{"content":"   "}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/summarize", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Summarize(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if called {
		t.Error("expected upstream not to be called for empty content")
	}
}

func TestAIHandler_Summarize_UpstreamFailure_ReturnsBadGateway(t *testing.T) {
	client := &mockAIClient{
		summarizeFn: func(ctx context.Context, content string) (string, error) {
			return "", model.NewUpstreamFailedError("timeout")
		},
	}
	metrics := &mockAIMetrics{}

	h := NewAIHandler(client, &mockCorpusLister{}, metrics)

	body := `{"content":"<p>本文</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/summarize", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Summarize(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
	if metrics.failures["upstream"] != 1 {
		t.Errorf("upstream failures = %d, want 1", metrics.failures["upstream"])
	}
}

// --- POST /api/ai/related テスト ---

func TestAIHandler_Related_ReturnsIndexes(t *testing.T) {
	var receivedCandidates []ai.Candidate
	client := &mockAIClient{
		findRelatedFn: func(ctx context.Context, content string, candidates []ai.Candidate) ([]int, error) {
			receivedCandidates = candidates
			return []int{2, 0}, nil
		},
	}
	corpus := &mockCorpusLister{
		posts: []model.Post{
			{Title: "記事A", Slug: "a", Content: "本文A"},
			{Title: "記事B", Slug: "b", Content: "本文B"},
			{Title: "記事C", Slug: "c", Content: "本文C"},
		},
	}

	h := NewAIHandler(client, corpus, nil)

	body := `{"content":"<p>いま読んでいる記事</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/related", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Related(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if len(receivedCandidates) != 3 {
		t.Errorf("candidates length = %d, want 3", len(receivedCandidates))
	}
	if receivedCandidates[0].Slug != "a" {
		t.Errorf("candidate slug = %q, want %q", receivedCandidates[0].Slug, "a")
	}

	var result map[string][]int
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result["result"]) != 2 || result["result"][0] != 2 {
		t.Errorf("result = %v, want [2 0]", result["result"])
	}
}

func TestAIHandler_Related_ParseFailure_DegradesToEmptyList(t *testing.T) {
	client := &mockAIClient{
		findRelatedFn: func(ctx context.Context, content string, candidates []ai.Candidate) ([]int, error) {
			return nil, model.NewAIParseFailedError()
		},
	}
	metrics := &mockAIMetrics{}

	h := NewAIHandler(client, &mockCorpusLister{posts: []model.Post{{Title: "記事A"}}}, metrics)

	body := `{"content":"<p>本文</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/related", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Related(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d (parse failure degrades)", resp.StatusCode, http.StatusOK)
	}

	var result map[string][]int
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result["result"]) != 0 {
		t.Errorf("result = %v, want empty list", result["result"])
	}
	if metrics.failures["parse"] != 1 {
		t.Errorf("parse failures = %d, want 1", metrics.failures["parse"])
	}
}

func TestAIHandler_Related_UpstreamFailure_ReturnsBadGateway(t *testing.T) {
	client := &mockAIClient{
		findRelatedFn: func(ctx context.Context, content string, candidates []ai.Candidate) ([]int, error) {
			return nil, model.NewUpstreamFailedError("rate limited")
		},
	}

	h := NewAIHandler(client, &mockCorpusLister{}, nil)

	body := `{"content":"<p>本文</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/related", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Related(w, req)

	if w.Result().StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadGateway)
	}
}

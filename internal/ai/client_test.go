package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/blogman/internal/model"
)

// newGeminiStub は固定のテキストを返すGemini APIスタブを起動する。
func newGeminiStub(t *testing.T, replyText string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("x-goog-api-key") == "" {
			t.Error("x-goog-api-key header should be set")
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"parts": []map[string]string{{"text": replyText}},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(endpoint string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(http.DefaultClient, logger, "test-key", endpoint)
}

func TestSummarize_Success(t *testing.T) {
	ts := newGeminiStub(t, "- 要点1\n- 要点2\n- 要点3", http.StatusOK)
	defer ts.Close()

	client := newTestClient(ts.URL)
	result, err := client.Summarize(context.Background(), "長い記事本文")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if result != "- 要点1\n- 要点2\n- 要点3" {
		t.Errorf("result = %q", result)
	}
}

func TestSummarize_UpstreamError(t *testing.T) {
	ts := newGeminiStub(t, "", http.StatusServiceUnavailable)
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.Summarize(context.Background(), "本文")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUpstreamFailed {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeUpstreamFailed)
	}
}

func sampleCandidates() []Candidate {
	return []Candidate{
		{Title: "Goの並行処理", Content: "goroutineとchannel", Slug: "go-concurrency"},
		{Title: "Rustの所有権", Content: "borrow checker", Slug: "rust-ownership"},
		{Title: "Goのテスト", Content: "table driven tests", Slug: "go-testing"},
		{Title: "SQL入門", Content: "SELECTとJOIN", Slug: "sql-basics"},
		{Title: "Redis活用", Content: "キャッシュ戦略", Slug: "redis-patterns"},
	}
}

func TestFindRelated_ParsesBracketedList(t *testing.T) {
	ts := newGeminiStub(t, "The most related posts are: [0, 2, 4]", http.StatusOK)
	defer ts.Close()

	client := newTestClient(ts.URL)
	indexes, err := client.FindRelated(context.Background(), "Goの話", sampleCandidates())
	if err != nil {
		t.Fatalf("FindRelated() error = %v", err)
	}
	want := []int{0, 2, 4}
	if len(indexes) != len(want) {
		t.Fatalf("indexes = %v, want %v", indexes, want)
	}
	for i := range want {
		if indexes[i] != want[i] {
			t.Errorf("indexes[%d] = %d, want %d", i, indexes[i], want[i])
		}
	}
}

// 整数リストを含まない応答はパース失敗エラーになることを検証。
// 呼び出し側はこのエラーで空リストにフォールバックする。
func TestFindRelated_NonBracketedReply(t *testing.T) {
	ts := newGeminiStub(t, "I cannot determine this.", http.StatusOK)
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.FindRelated(context.Background(), "本文", sampleCandidates())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAIParseFailed {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeAIParseFailed)
	}
}

func TestFindRelated_DropsOutOfRangeIndexes(t *testing.T) {
	ts := newGeminiStub(t, "[1, 42, 3]", http.StatusOK)
	defer ts.Close()

	client := newTestClient(ts.URL)
	indexes, err := client.FindRelated(context.Background(), "本文", sampleCandidates())
	if err != nil {
		t.Fatalf("FindRelated() error = %v", err)
	}
	for _, idx := range indexes {
		if idx < 0 || idx >= len(sampleCandidates()) {
			t.Errorf("index %d is out of range", idx)
		}
	}
	if len(indexes) != 2 {
		t.Errorf("indexes = %v, want [1 3]", indexes)
	}
}

func TestFindRelated_EmptyCorpus(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	indexes, err := client.FindRelated(context.Background(), "本文", nil)
	if err != nil {
		t.Fatalf("FindRelated() error = %v", err)
	}
	if len(indexes) != 0 {
		t.Errorf("indexes = %v, want empty", indexes)
	}
}

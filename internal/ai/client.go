// Package ai は生成AIによる記事要約と関連記事ランキングを提供する。
// Gemini generateContent APIを呼び出し、テキスト応答をパースする。
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/hitoshi/blogman/internal/model"
)

// defaultEndpoint はGemini generateContent APIのエンドポイント。
const defaultEndpoint = "https://generativelanguage.googleapis.com/v1/models/gemini-1.5-flash:generateContent"

const (
	// maxContentChars は関連記事プロンプトに埋め込む本文の最大文字数。
	maxContentChars = 2000
	// maxCandidateChars は候補記事1件あたりプロンプトに埋め込む本文の最大文字数。
	maxCandidateChars = 300
)

// relatedListPattern はAI応答から最初の整数リスト `[0, 3, 5]` を抽出する。
var relatedListPattern = regexp.MustCompile(`\[[\d,\s]+\]`)

// Candidate は関連記事ランキングの候補記事。
type Candidate struct {
	Title   string
	Content string
	Slug    string
}

// ClientService はAIヘルパーのインターフェースを定義する。
type ClientService interface {
	// Summarize は記事本文の要約テキストを生成する。
	// 上流呼び出しの失敗はUPSTREAM_FAILEDとして返し、リトライしない。
	Summarize(ctx context.Context, content string) (string, error)

	// FindRelated は候補リストから関連度の高い記事のインデックス（0始まり）を返す。
	// 応答から整数リストを抽出できない場合はAI_PARSE_FAILEDを返す。
	// 呼び出し側はこのエラーを受けて空リストにフォールバックする。
	FindRelated(ctx context.Context, content string, candidates []Candidate) ([]int, error)
}

// Client はClientServiceのGemini実装。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// endpointが空の場合はGeminiの本番エンドポイントを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey, endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   endpoint,
	}
}

// Summarize は記事本文の要約テキストを生成する。
func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following blog post in 3-4 concise bullet points, highlighting the key takeaways. Keep it under 200 words total:\n\n%s",
		content,
	)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", model.NewUpstreamFailedError("応答に要約テキストが含まれていません")
	}
	return text, nil
}

// FindRelated は候補リストから関連記事のインデックスを返す。
func (c *Client) FindRelated(ctx context.Context, content string, candidates []Candidate) ([]int, error) {
	if len(candidates) == 0 {
		return []int{}, nil
	}

	var list strings.Builder
	for i, cand := range candidates {
		fmt.Fprintf(&list, "%d. %s: %s...\n\n", i+1, cand.Title, truncate(cand.Content, maxCandidateChars))
	}

	prompt := fmt.Sprintf(
		"Given the following blog post content:\n\n%s\n\n"+
			"Identify the 3 most related posts from this list based on semantic similarity, shared themes, similar topics, and complementary subject matter:\n\n%s\n"+
			"Return ONLY a JSON array with the indexes (0-based) of the 3 most related posts, like [0, 3, 5]. Do not include any explanations or other text.",
		truncate(content, maxContentChars),
		list.String(),
	)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	match := relatedListPattern.FindString(text)
	if match == "" {
		c.logger.Warn("AI応答から関連記事リストを抽出できませんでした",
			slog.String("response_head", truncate(text, 100)),
		)
		return nil, model.NewAIParseFailedError()
	}

	var indexes []int
	if err := json.Unmarshal([]byte(match), &indexes); err != nil {
		return nil, model.NewAIParseFailedError()
	}

	// 範囲外のインデックスは捨てる
	valid := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		if idx >= 0 && idx < len(candidates) {
			valid = append(valid, idx)
		}
	}
	return valid, nil
}

// geminiRequest はgenerateContent APIのリクエストボディ。
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// geminiResponse はgenerateContent APIのレスポンスボディ。
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate はプロンプトを送信し、最初の候補テキストを返す。
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.2,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストボディの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("生成AIエンドポイントの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", model.NewUpstreamFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("生成AIエンドポイントがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", model.NewUpstreamFailedError(fmt.Sprintf("ステータス %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.NewUpstreamFailedError("レスポンスボディの読み取りに失敗しました")
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", model.NewUpstreamFailedError("レスポンスJSONのパースに失敗しました")
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", model.NewUpstreamFailedError("応答に候補テキストが含まれていません")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// truncate は文字列を最大n文字（バイトではなくルーン数）に切り詰める。
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var _ ClientService = (*Client)(nil)

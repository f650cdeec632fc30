// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力およびインポート記事のHTMLを
// サニタイズし、XSSからユーザーを保護する。
// bluemondayの許可リストベースのポリシーで安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 記事・コメントの保存前に使用される。
type ContentSanitizerService interface {
	// SanitizePost は記事本文をサニタイズして安全なHTMLを返す。
	// 見出し・段落・リスト・コードブロック・画像・リンクを許可し、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// imgタグのsrc属性はhttpsスキームのみ許可される。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizePost(rawHTML string) string

	// SanitizeComment はコメント本文をサニタイズする。
	// 記事本文より厳格で、インライン装飾（strong, em, code）と
	// 段落・改行のみを許可する。画像・リンク・見出しは除去される。
	SanitizeComment(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// 記事用・コメント用の2つのポリシーを保持する。
// bluemondayのPolicyはスレッドセーフなので共有して問題ない。
type contentSanitizer struct {
	postPolicy    *bluemonday.Policy
	commentPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		postPolicy:    buildPostPolicy(),
		commentPolicy: buildCommentPolicy(),
	}
}

// buildPostPolicy は記事本文用のポリシーを構築する。
// 許可タグ: h2, h3, h4, p, br, a, ul, ol, li, blockquote, pre, code,
// strong, em, img
// script, iframe, style等は許可リストに含めないことで自動的に除去される。
// on*イベント属性はbluemondayのデフォルトで許可されない。
func buildPostPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h2", "h3", "h4",
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	// リンクは絶対URLのみ。外部リンクにはtarget/relを強制付与する
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// 画像はhttpsのみ（http, javascript, data等は拒否）
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return p
}

// buildCommentPolicy はコメント本文用のポリシーを構築する。
// 段落・改行とインライン装飾のみ。リンク・画像・見出しは許可しない。
func buildCommentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "code")
	return p
}

// SanitizePost は記事本文をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizePost(rawHTML string) string {
	return s.postPolicy.Sanitize(rawHTML)
}

// SanitizeComment はコメント本文をサニタイズする。
func (s *contentSanitizer) SanitizeComment(rawHTML string) string {
	return s.commentPolicy.Sanitize(rawHTML)
}

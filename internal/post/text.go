package post

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// ExcerptMaxRunes は自動生成する抜粋の最大文字数。
const ExcerptMaxRunes = 160

// wordsPerMinute は読了時間計算に使う1分あたりの語数。
const wordsPerMinute = 200

var multiHyphenPattern = regexp.MustCompile(`-{2,}`)

// Slugify はタイトルからURLスラッグを導出する。
// 英数字は小文字化、空白と記号はハイフンに置換する。
// ASCII外の文字（日本語等）はそのまま残す（URLエンコードはルーター側の責務）。
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '_', r == '/':
			b.WriteRune('-')
		case r > unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsNumber(r)):
			b.WriteRune(r)
		}
	}
	slug := multiHyphenPattern.ReplaceAllString(b.String(), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "post"
	}
	return slug
}

// ExtractText はHTMLからテキストのみを抽出する。
// パースに失敗した場合はタグを含む入力をそのまま返す。
func ExtractText(rawHTML string) string {
	node, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Excerpt はHTML本文から抜粋テキストを生成する。
func Excerpt(rawHTML string, maxRunes int) string {
	text := ExtractText(rawHTML)
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}

// ReadTime はHTML本文から読了時間（分）を計算する。
// 約200語/分で換算し、最低1分を保証する。
// 空白で区切られない言語（日本語等）は400文字/分で換算し、大きい方を採用する。
func ReadTime(rawHTML string) int {
	text := ExtractText(rawHTML)

	words := len(strings.Fields(text))
	byWords := words / wordsPerMinute

	runes := len([]rune(text))
	byRunes := runes / 400

	minutes := byWords
	if byRunes > minutes {
		minutes = byRunes
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

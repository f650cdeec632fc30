// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, ai, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeDuplicateUsername    = "DUPLICATE_USERNAME"
	ErrCodeInvalidUsername      = "INVALID_USERNAME"
	ErrCodeWeakPassword         = "WEAK_PASSWORD"
	ErrCodePostNotFound         = "POST_NOT_FOUND"
	ErrCodeCategoryNotFound     = "CATEGORY_NOT_FOUND"
	ErrCodeCommentNotFound      = "COMMENT_NOT_FOUND"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeEmptyContent         = "EMPTY_CONTENT"
	ErrCodeCommentDepth         = "COMMENT_DEPTH"
	ErrCodeParentMismatch       = "PARENT_MISMATCH"
	ErrCodeDuplicateSlug        = "DUPLICATE_SLUG"
	ErrCodeInvalidReaction      = "INVALID_REACTION"
	ErrCodeInvalidEmail         = "INVALID_EMAIL"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
	ErrCodeUpstreamFailed       = "UPSTREAM_FAILED"
	ErrCodeAIParseFailed        = "AI_PARSE_FAILED"
	ErrCodeImportSourceNotFound = "IMPORT_SOURCE_NOT_FOUND"
	ErrCodeInvalidStateKind     = "INVALID_STATE_KIND"
	ErrCodeUploadFailed         = "UPLOAD_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidUsernameError はユーザー名形式エラーを生成する。
func NewInvalidUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  fmt.Sprintf("無効なユーザー名です: %s", username),
		Category: "validation",
		Action:   "ユーザー名は英数字とアンダースコア3〜32文字で指定してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは8文字以上で指定してください。",
		Category: "validation",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewPostNotFoundError は記事未検出エラーを生成する。
func NewPostNotFoundError(idOrSlug string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", idOrSlug),
		Category: "content",
		Action:   "記事のURLを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(idOrSlug string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", idOrSlug),
		Category: "content",
		Action:   "カテゴリを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "content",
		Action:   "コメントIDを確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewEmptyContentError は本文が空の場合のエラーを生成する。
func NewEmptyContentError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyContent,
		Message:  "本文が空です。",
		Category: "validation",
		Action:   "本文を入力してください。",
	}
}

// NewCommentDepthError は返信の返信を作成しようとした場合のエラーを生成する。
// コメントのネストは1段までに制限される。
func NewCommentDepthError() *APIError {
	return &APIError{
		Code:     ErrCodeCommentDepth,
		Message:  "返信への返信は作成できません。",
		Category: "validation",
		Action:   "トップレベルのコメントに返信してください。",
	}
}

// NewParentMismatchError は親コメントが別記事のものである場合のエラーを生成する。
func NewParentMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeParentMismatch,
		Message:  "親コメントが同じ記事のものではありません。",
		Category: "validation",
		Action:   "返信先のコメントを確認してください。",
	}
}

// NewDuplicateSlugError はスラッグ重複エラーを生成する。
func NewDuplicateSlugError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSlug,
		Message:  fmt.Sprintf("このスラッグは既に使用されています: %s", slug),
		Category: "validation",
		Action:   "別のスラッグを指定してください。",
	}
}

// NewInvalidReactionError は無効なリアクション種別エラーを生成する。
func NewInvalidReactionError(reactionType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReaction,
		Message:  fmt.Sprintf("無効なリアクション種別です: %s", reactionType),
		Category: "validation",
		Action:   "リアクション種別には like を指定してください。",
	}
}

// NewInvalidEmailError は無効なメールアドレスエラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("無効なメールアドレスです: %s", email),
		Category: "validation",
		Action:   "正しいメールアドレスを入力してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewUpstreamFailedError は外部AIエンドポイント呼び出し失敗エラーを生成する。
func NewUpstreamFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  fmt.Sprintf("外部サービスの呼び出しに失敗しました: %s", reason),
		Category: "ai",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewAIParseFailedError はAI応答のパース失敗エラーを生成する。
// 呼び出し側はこのエラーを受けてフォールバック値に切り替える。
func NewAIParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAIParseFailed,
		Message:  "AI応答の解析に失敗しました。",
		Category: "ai",
		Action:   "再度お試しください。",
	}
}

// NewImportSourceNotFoundError はインポート元未検出エラーを生成する。
func NewImportSourceNotFoundError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeImportSourceNotFound,
		Message:  fmt.Sprintf("指定されたインポート元が見つかりません: %s", sourceID),
		Category: "content",
		Action:   "インポート元IDを確認してください。",
	}
}

// NewInvalidStateKindError は無効なインタラクション状態種別エラーを生成する。
func NewInvalidStateKindError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStateKind,
		Message:  fmt.Sprintf("無効な状態種別です: %s", kind),
		Category: "validation",
		Action:   "状態種別には poll または notes を指定してください。",
	}
}

// NewUploadFailedError は画像アップロード失敗エラーを生成する。
func NewUploadFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  fmt.Sprintf("画像のアップロードに失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

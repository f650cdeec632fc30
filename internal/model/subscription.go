// Package model はドメインモデルを定義する。
package model

import "time"

// Subscription はメール購読を表す。メールアドレスが重複排除キーとなる。
// 再購読時はカテゴリ選択が全置換される（マージしない）。
type Subscription struct {
	ID          string
	Email       string
	UserID      string // 未ログイン購読の場合は空
	CategoryIDs []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubscriptionResult は購読登録・更新の結果を表す。
type SubscriptionResult struct {
	SubscriptionID string
	Updated        bool // 既存購読の更新だった場合はtrue
}

// InteractionStateKind は記事ごとのユーザーインタラクション状態の種別を表す。
type InteractionStateKind string

const (
	// InteractionKindPoll は投票ウィジェットの状態。
	InteractionKindPoll InteractionStateKind = "poll"
	// InteractionKindNotes は付箋メモの状態。
	InteractionKindNotes InteractionStateKind = "notes"
)

// IsValid はサポートされている状態種別かどうかを返す。
func (k InteractionStateKind) IsValid() bool {
	return k == InteractionKindPoll || k == InteractionKindNotes
}

// InteractionState はユーザーごと・記事ごとの不透明なインタラクション状態を表す。
// 値はJSONのまま保存され、サーバーは中身を解釈しない。
type InteractionState struct {
	ID        string
	UserID    string
	PostID    string
	Kind      InteractionStateKind
	Value     []byte // JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, guild, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeMissingGuildID = "MISSING_GUILD_ID"
	ErrCodeNoChanges      = "NO_CHANGES_REQUESTED"
	ErrCodeAvatarTooLarge = "AVATAR_TOO_LARGE"
	ErrCodeGuildNotFound  = "GUILD_NOT_FOUND"
	ErrCodeNotGuildOwner  = "NOT_GUILD_OWNER"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternal       = "INTERNAL_ERROR"
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

// NewMissingGuildIDError はギルドID未指定エラーを生成する。
func NewMissingGuildIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingGuildID,
		Message:  "ギルドIDが指定されていません。",
		Category: "validation",
		Action:   "対象サーバーのギルドIDを指定してください。",
	}
}

// NewNoChangesError は変更内容が空の場合のエラーを生成する。
func NewNoChangesError() *APIError {
	return &APIError{
		Code:     ErrCodeNoChanges,
		Message:  "変更内容が指定されていません。",
		Category: "validation",
		Action:   "ニックネームまたはアバターのいずれかを指定してください。",
	}
}

// NewAvatarTooLargeError はアバターのサイズ超過エラーを生成する。
func NewAvatarTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeAvatarTooLarge,
		Message:  fmt.Sprintf("アバター画像が大きすぎます（上限 %d バイト）。", maxBytes),
		Category: "validation",
		Action:   "5MiB以下の画像を指定してください。",
	}
}

// NewGuildNotFoundError はギルド未検出エラーを生成する。
// ギルドが存在しない場合とBotが参加していない場合の両方を含む。
func NewGuildNotFoundError(guildID string) *APIError {
	return &APIError{
		Code:     ErrCodeGuildNotFound,
		Message:  fmt.Sprintf("指定されたサーバーが見つからないか、Botが参加していません: %s", guildID),
		Category: "guild",
		Action:   "ギルドIDを確認し、Botをサーバーに招待してください。",
	}
}

// NewNotGuildOwnerError は所有者検証に失敗した場合のエラーを生成する。
func NewNotGuildOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotGuildOwner,
		Message:  "このサーバーの所有者ではありません。",
		Category: "auth",
		Action:   "自分が所有しているサーバーのギルドIDを指定してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 外部API呼び出しの失敗を含む。詳細はログのみに記録し、クライアントには返さない。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// Package model はドメインモデルを定義する。
package model

import "time"

// User はDiscord OAuthで認証されたユーザーのアイデンティティを表す。
// ログイン時にDiscordのユーザー情報エンドポイントから取得し、
// セッションの生存期間中は不変として扱う。
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// Session はブラウザのCookieと認証済みアイデンティティを結びつける
// サーバー側のレコードを表す。有効期限は作成時刻からの絶対時間。
type Session struct {
	ID        string
	User      *User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Guild はDiscord管理APIから取得したギルド（サーバー）の情報を表す。
// OwnerIDは所有者検証のたびにAPIから取得した生の値を使用し、
// キャッシュやリクエストボディの値は決して信用しない。
type Guild struct {
	ID      string
	Name    string
	OwnerID string
}

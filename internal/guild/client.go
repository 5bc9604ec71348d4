// Package guild はDiscordギルドの取得とボット自身のプロフィール更新を提供する。
package guild

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/hitoshi/guildgate/internal/model"
)

// API はDiscord APIへのアクセスを抽象化するインターフェース。
// テストでのモック差し替えのための抽象化。
type API interface {
	// Guild はギルドを取得する。存在しない・ボットが参加していない場合は(nil, nil)。
	Guild(ctx context.Context, guildID string) (*model.Guild, error)
	// UpdateSelfMember はギルド内のボット自身のメンバープロフィールを更新する。
	UpdateSelfMember(ctx context.Context, guildID string, params MemberParams) error
}

// MemberParams はメンバープロフィール更新のリクエストボディ。
// 省略したフィールドは変更されない。
type MemberParams struct {
	Nick   string `json:"nick,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Client はdiscordgoセッションを使ったAPI実装。
type Client struct {
	session *discordgo.Session
}

// NewClient はClientを生成する。
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

// Guild はDiscord APIからギルドを取得する。
// キャッシュではなく毎回APIに問い合わせる。所有者の確認は
// 更新の直前に行う必要があるため、古い情報を使ってはならない。
func (c *Client) Guild(ctx context.Context, guildID string) (*model.Guild, error) {
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		if isGuildNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
	}

	return &model.Guild{
		ID:      g.ID,
		Name:    g.Name,
		OwnerID: g.OwnerID,
	}, nil
}

// UpdateSelfMember はギルド内のボット自身のニックネームとアバターを更新する。
// ボット資格情報で実行されるため、呼び出し元で所有者確認を済ませてから呼ぶこと。
func (c *Client) UpdateSelfMember(ctx context.Context, guildID string, params MemberParams) error {
	endpoint := discordgo.EndpointGuildMember(guildID, "@me")
	_, err := c.session.RequestWithBucketID(http.MethodPatch, endpoint, params, endpoint, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to update bot member in guild %s: %w", guildID, err)
	}
	return nil
}

// isGuildNotFound はギルドが存在しない、またはボットが参加していない
// ことを示すエラーかどうかを判定する。
func isGuildNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return true
		}
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownGuild, discordgo.ErrCodeMissingAccess:
			return true
		}
	}
	return false
}

// compile-time interface check
var _ API = (*Client)(nil)

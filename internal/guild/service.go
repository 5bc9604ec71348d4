package guild

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/guildgate/internal/model"
)

// AuditAppender は特権操作の監査記録に必要なインターフェース。
// audit.Logの部分集合として定義する。
type AuditAppender interface {
	Append(actorID, guildID, action string)
}

// ProfileUpdateRequest はプロフィール更新の入力。
// Avatarがnilの場合、アバターは変更しない。
type ProfileUpdateRequest struct {
	GuildID    string
	Nickname   string
	Avatar     []byte
	AvatarType string // アバターのContent-Type（例: image/png）
}

// Service はギルドプロフィール更新のビジネスロジックを提供する。
// 検証はすべて更新の直前にAPIから取得した情報に対して行う。
type Service struct {
	api   API
	audit AuditAppender
}

// NewService はServiceを生成する。
func NewService(api API, audit AuditAppender) *Service {
	return &Service{
		api:   api,
		audit: audit,
	}
}

// UpdateProfile はギルド内のボットのニックネームとアバターを更新する。
// actorがギルドの所有者であることを確認してから実行し、成功時のみ
// 監査ログに記録する。戻り値はギルド名。
//
// 検証の順序は固定：guildID必須 → ギルド取得 → 所有者確認 → 変更内容検証。
// 先に失敗した検証のエラーだけが返る。
func (s *Service) UpdateProfile(ctx context.Context, actor *model.User, req ProfileUpdateRequest) (string, error) {
	if actor == nil {
		return "", model.NewUnauthorizedError()
	}
	if req.GuildID == "" {
		return "", model.NewMissingGuildIDError()
	}

	// 所有者確認は毎回ライブの情報で行う。キャッシュ・セッション格納は不可。
	g, err := s.api.Guild(ctx, req.GuildID)
	if err != nil {
		slog.Error("failed to fetch guild for profile update",
			slog.String("guild_id", req.GuildID),
			slog.String("error", err.Error()),
		)
		return "", model.NewInternalError()
	}
	if g == nil {
		return "", model.NewGuildNotFoundError(req.GuildID)
	}
	if g.OwnerID != actor.ID {
		return "", model.NewNotGuildOwnerError()
	}

	params := MemberParams{Nick: req.Nickname}
	changes := make([]string, 0, 2)
	if req.Nickname != "" {
		changes = append(changes, "Nickname")
	}
	if req.Avatar != nil {
		params.Avatar = encodeAvatarDataURI(req.AvatarType, req.Avatar)
		changes = append(changes, "Avatar")
	}
	if len(changes) == 0 {
		return "", model.NewNoChangesError()
	}

	if err := s.api.UpdateSelfMember(ctx, req.GuildID, params); err != nil {
		slog.Error("failed to update bot profile",
			slog.String("guild_id", req.GuildID),
			slog.String("user_id", actor.ID),
			slog.String("error", err.Error()),
		)
		return "", model.NewInternalError()
	}

	// 監査記録は成功時のみ
	s.audit.Append(actor.ID, req.GuildID, "Changed: "+strings.Join(changes, " & "))

	slog.Info("bot profile updated",
		slog.String("guild_id", req.GuildID),
		slog.String("guild_name", g.Name),
		slog.String("user_id", actor.ID),
		slog.String("changes", strings.Join(changes, ",")),
	)

	return g.Name, nil
}

// encodeAvatarDataURI はアバター画像をDiscord APIが要求する
// data URI形式（data:<mimetype>;base64,<data>）に変換する。
func encodeAvatarDataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

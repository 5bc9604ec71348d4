// Package auth はOAuth認証フローとセッション発行を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/guildgate/internal/model"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// テストでのモック差し替えのための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認可URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*model.User, error)
}

// SessionCreator はセッションの発行と破棄に必要なインターフェース。
// session.Storeの部分集合として定義する。
type SessionCreator interface {
	Create(user *model.User) (*model.Session, error)
	Find(id string) *model.Session
	Delete(id string)
}

// Service は認証に関するビジネスロジックを提供する。
// 観測可能な状態はAnonymousとAuthenticatedの2つで、
// 遷移はプロバイダーのコールバックが運ぶ1回限りの認可コードだけが引き起こす。
type Service struct {
	oauth    OAuthProvider
	sessions SessionCreator
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, sessions SessionCreator) *Service {
	return &Service{
		oauth:    oauth,
		sessions: sessions,
	}
}

// GetLoginURL はOAuth認可URLを生成する。
// この時点ではサーバー側に状態を作らない。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// コード交換・ユーザー情報取得のいずれかが失敗した場合は
// セッションを作らずにエラーを返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	user, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. セッションを発行
	session, err := s.sessions.Create(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(sessionID string) {
	if sessionID == "" {
		return
	}
	s.sessions.Delete(sessionID)
	slog.Info("user logged out", slog.String("session_id", sessionID))
}

// GetCurrentUser はセッションIDから現在のユーザーを取得する。
// セッションが存在しない・期限切れの場合はnilを返す（匿名扱い、エラーではない）。
func (s *Service) GetCurrentUser(sessionID string) *model.User {
	if sessionID == "" {
		return nil
	}
	session := s.sessions.Find(sessionID)
	if session == nil {
		return nil
	}
	return session.User
}

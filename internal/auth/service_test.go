package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/guildgate/internal/model"
)

// --- モック定義 ---

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*model.User, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*model.User, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

type mockSessionCreator struct {
	createFn func(user *model.User) (*model.Session, error)
	findFn   func(id string) *model.Session
	deleted  []string
}

func (m *mockSessionCreator) Create(user *model.User) (*model.Session, error) {
	if m.createFn != nil {
		return m.createFn(user)
	}
	return &model.Session{
		ID:        "session-1",
		User:      user,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (m *mockSessionCreator) Find(id string) *model.Session {
	if m.findFn != nil {
		return m.findFn(id)
	}
	return nil
}

func (m *mockSessionCreator) Delete(id string) {
	m.deleted = append(m.deleted, id)
}

// --- テスト本体 ---

func TestService_HandleCallback_Success(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.User, error) {
			if code != "auth-code-1" {
				t.Errorf("code = %q, want auth-code-1", code)
			}
			return &model.User{ID: "user-1", Username: "tester"}, nil
		},
	}
	sessions := &mockSessionCreator{}

	svc := NewService(provider, sessions)

	session, err := svc.HandleCallback(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}

	if session.User.ID != "user-1" {
		t.Errorf("session user = %q, want user-1", session.User.ID)
	}
}

func TestService_HandleCallback_ExchangeFails_NoSessionCreated(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.User, error) {
			return nil, errors.New("invalid_grant")
		},
	}

	created := false
	sessions := &mockSessionCreator{
		createFn: func(user *model.User) (*model.Session, error) {
			created = true
			return nil, nil
		},
	}

	svc := NewService(provider, sessions)

	if _, err := svc.HandleCallback(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error for failed code exchange")
	}
	if created {
		t.Error("no session should be created when the exchange fails")
	}
}

func TestService_HandleCallback_SessionCreationFails(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.User, error) {
			return &model.User{ID: "user-1"}, nil
		},
	}
	sessions := &mockSessionCreator{
		createFn: func(user *model.User) (*model.Session, error) {
			return nil, errors.New("entropy exhausted")
		},
	}

	svc := NewService(provider, sessions)

	if _, err := svc.HandleCallback(context.Background(), "auth-code-1"); err == nil {
		t.Fatal("expected error for failed session creation")
	}
}

func TestService_GetLoginURL_DelegatesWithState(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://discord.example/authorize?state=" + state
		},
	}
	svc := NewService(provider, &mockSessionCreator{})

	got := svc.GetLoginURL("state-1")
	if got != "https://discord.example/authorize?state=state-1" {
		t.Errorf("GetLoginURL = %q", got)
	}
}

func TestService_Logout_DeletesSession(t *testing.T) {
	sessions := &mockSessionCreator{}
	svc := NewService(&mockOAuthProvider{}, sessions)

	svc.Logout("session-1")

	if len(sessions.deleted) != 1 || sessions.deleted[0] != "session-1" {
		t.Errorf("deleted = %v, want [session-1]", sessions.deleted)
	}

	// 空IDは何もしない
	svc.Logout("")
	if len(sessions.deleted) != 1 {
		t.Errorf("empty session ID should not trigger a delete, deleted = %v", sessions.deleted)
	}
}

func TestService_GetCurrentUser(t *testing.T) {
	user := &model.User{ID: "user-1"}
	sessions := &mockSessionCreator{
		findFn: func(id string) *model.Session {
			if id == "valid-session" {
				return &model.Session{ID: id, User: user}
			}
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, sessions)

	if got := svc.GetCurrentUser("valid-session"); got == nil || got.ID != "user-1" {
		t.Errorf("GetCurrentUser = %v, want user-1", got)
	}
	if got := svc.GetCurrentUser("expired-session"); got != nil {
		t.Errorf("GetCurrentUser for unknown session = %v, want nil", got)
	}
	if got := svc.GetCurrentUser(""); got != nil {
		t.Errorf("GetCurrentUser for empty ID = %v, want nil", got)
	}
}

// Package session はプロセス内メモリ上のセッションストアを提供する。
// 全セッションはプロセスの生存期間に限定され、再起動で消える。
// 永続化しないのは意図的なトレードオフであり、外部ストアを追加してはならない。
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/guildgate/internal/model"
)

// Store はセッショントークンから認証済みアイデンティティへのマップを管理する。
// 有効期限は作成時刻からの絶対時間。
//
// トークンは「乱数ID.HMAC-SHA256署名」の形式で、署名鍵はSESSION_SECRET。
// 参照・破棄の前に署名を検証し、改ざんされたトークンはストアに触れずに拒否する。
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session // キーは署名前の乱数ID

	maxAge time.Duration
	secret []byte
	stopCh chan struct{}

	// テスト用に差し替え可能な現在時刻取得関数
	now func() time.Time
}

// NewStore はStoreを生成し、期限切れセッションを回収する
// バックグラウンドのスイープループを開始する。
// 有効期限の判定自体はFindで遅延評価するため、スイープはメモリ回収のみを担う。
func NewStore(maxAge time.Duration, sweepInterval time.Duration, secret string) *Store {
	s := &Store{
		sessions: make(map[string]*model.Session),
		maxAge:   maxAge,
		secret:   []byte(secret),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	go s.sweepLoop(sweepInterval)

	return s
}

// Stop はスイープのバックグラウンドゴルーチンを停止する。
func (s *Store) Stop() {
	close(s.stopCh)
}

// Create は認証済みユーザーに対して新しいセッションを発行する。
// トークンのID部は暗号的に安全な乱数から生成され、
// アイデンティティから導出・推測できない。
func (s *Store) Create(user *model.User) (*model.Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        id + "." + s.sign(id),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(s.maxAge),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Find はセッショントークンからセッションを取得する。
// 署名が不正な場合、存在しない場合、期限切れの場合はnilを返す。
// nilはエラーではなく、呼び出し側が「匿名」として扱う。
func (s *Store) Find(token string) *model.Session {
	id, ok := s.verify(token)
	if !ok {
		return nil
	}

	s.mu.RLock()
	session, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil
	}

	if !s.now().Before(session.ExpiresAt) {
		// 期限切れは遅延削除する
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil
	}

	return session
}

// Delete はセッションを破棄する。ログアウトで使用する。
// 署名が不正なトークンや存在しないトークンを指定しても何も起きない。
func (s *Store) Delete(token string) {
	id, ok := s.verify(token)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// sign はセッションIDのHMAC-SHA256署名を返す。
func (s *Store) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify はトークンの署名を検証し、ID部を返す。
func (s *Store) verify(token string) (string, bool) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(id))) {
		return "", false
	}
	return id, true
}

// Count は現在保持しているセッション数を返す。
// テストおよびメトリクス用。
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// sweepLoop はバックグラウンドで期限切れセッションを定期的に回収する。
func (s *Store) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep は期限切れセッションを削除する。
func (s *Store) sweep() {
	now := s.now()

	s.mu.Lock()
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

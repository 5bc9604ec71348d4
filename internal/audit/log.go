// Package audit は特権操作の監査ログを提供する。
// ログは容量固定のリングバッファで、プロセス内メモリにのみ保持する。
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/guildgate/internal/model"
)

// DefaultCapacity は監査ログの既定容量。
// 容量到達後の追記は最も古いエントリを追い出す（FIFO）。
const DefaultCapacity = 50

// Log は挿入順を保持する容量固定の監査ログ。
// 単一の共有列であり、アクター別の分離はクエリ時のフィルタのみ。
type Log struct {
	mu      sync.Mutex
	entries []model.AuditEntry // リングバッファ本体（長さ = capacity）
	next    int                // 次に書き込む位置
	size    int                // 有効エントリ数（<= capacity）

	// テスト用に差し替え可能な現在時刻取得関数
	now func() time.Time
}

// NewLog は容量capacityのLogを生成する。
// capacityが0以下の場合はDefaultCapacityを使用する。
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]model.AuditEntry, capacity),
		now:     time.Now,
	}
}

// Append は監査エントリを1件追記する。無条件・副作用のみ。
// 容量到達時は最も古いエントリを上書きするため、長さが容量を超えることはない。
func (l *Log) Append(actorID, guildID, action string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = model.AuditEntry{
		ID:        uuid.New().String(),
		Timestamp: l.now(),
		ActorID:   actorID,
		GuildID:   guildID,
		Action:    action,
	}
	l.next = (l.next + 1) % len(l.entries)
	if l.size < len(l.entries) {
		l.size++
	}
}

// RecentByActor は指定アクターの直近limit件のエントリを新しい順で返す。
// 該当がなければ空スライスを返し、エラーにはならない。
func (l *Log) RecentByActor(actorID string, limit int) []model.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]model.AuditEntry, 0, limit)
	if limit <= 0 {
		return result
	}

	// nextの1つ前が最新。新しい順に遡る。
	for i := 1; i <= l.size && len(result) < limit; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		if l.entries[idx].ActorID == actorID {
			result = append(result, l.entries[idx])
		}
	}

	return result
}

// Len は現在のエントリ数を返す。テストおよびメトリクス用。
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

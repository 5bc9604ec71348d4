package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/guildgate/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	Window          time.Duration // 固定ウィンドウの長さ
	MaxRequests     int           // ウィンドウあたりの最大リクエスト数
	CleanupInterval time.Duration // 期限切れバケットのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: クライアントあたり 50 req/min
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Window:          time.Minute,
		MaxRequests:     50,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimitMetricsRecorder はレート制限による拒否のメトリクス記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type RateLimitMetricsRecorder interface {
	RecordRateLimited()
}

// bucket はクライアントキーごとの固定ウィンドウカウンタ。
type bucket struct {
	windowStart time.Time
	count       int
}

// RateLimiter はクライアントキー（接続元アドレス）ごとの
// 固定ウィンドウ方式のレート制限を管理する。
// カウンタは現在時刻がwindowStart + Windowを越えた時点でリセットされる。
// リセットはアクセス時の遅延評価で行い、バックグラウンドの
// クリーンアップはメモリ回収のみを担う（観測可能な挙動は変わらない）。
type RateLimiter struct {
	config  RateLimiterConfig
	metrics RateLimitMetricsRecorder

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh chan struct{}

	// テスト用に差し替え可能な現在時刻取得関数
	now func() time.Time
}

// NewRateLimiter は新しいRateLimiterを生成する。metricsはnil可。
// バックグラウンドで期限切れバケットのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, metrics RateLimitMetricsRecorder) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		metrics: metrics,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow はクライアントキーのリクエストを許可するか判定する。
// 拒否時はウィンドウ終了までの残り時間を併せて返す。
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists || !now.Before(b.windowStart.Add(rl.config.Window)) {
		// 新しいウィンドウを開く（期限切れバケットの遅延リセットを含む）
		rl.buckets[key] = &bucket{windowStart: now, count: 1}
		return true, 0
	}

	if b.count >= rl.config.MaxRequests {
		retryAfter := b.windowStart.Add(rl.config.Window).Sub(now)
		return false, retryAfter
	}

	b.count++
	return true, 0
}

// Middleware はAPI全体を保護するレート制限ミドルウェアを返す。
// 認証前のルートも対象のため、クライアントキーには接続元アドレスを使用する。
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			allowed, retryAfter := rl.Allow(key)
			if !allowed {
				writeRateLimitResponse(w, retryAfter)
				slog.Warn("rate limit exceeded",
					slog.String("client_key", key),
					slog.String("path", r.URL.Path),
				)
				if rl.metrics != nil {
					rl.metrics.RecordRateLimited()
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BucketCount は現在管理されているバケット数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) BucketCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// cleanupLoop はバックグラウンドで期限切れバケットを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup はウィンドウが終了したバケットを削除する。
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	for key, b := range rl.buckets {
		if !now.Before(b.windowStart.Add(rl.config.Window)) {
			delete(rl.buckets, key)
		}
	}
	rl.mu.Unlock()
}

// clientKey はリクエストからレート制限用のクライアントキーを導出する。
// 接続元アドレスのホスト部を使用する。
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはウィンドウ終了までの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, retryAfter time.Duration) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	apiErr := model.NewRateLimitedError()

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordProfileUpdate(result string)
	RecordRateLimited()
	SetActiveSessions(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	loginSuccess   prometheus.Counter
	loginFail      *prometheus.CounterVec
	profileUpdate  *prometheus.CounterVec
	rateLimited    prometheus.Counter
	activeSessions prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guildgate_login_success_total",
			Help: "OAuthログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildgate_login_fail_total",
			Help: "OAuthログイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		profileUpdate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildgate_profile_update_total",
			Help: "プロフィール更新リクエストの合計数（結果別）",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guildgate_rate_limited_total",
			Help: "レート制限で拒否されたリクエストの合計数",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guildgate_active_sessions",
			Help: "現在有効なセッション数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.loginSuccess,
		c.loginFail,
		c.profileUpdate,
		c.rateLimited,
		c.activeSessions,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLoginSuccess はOAuthログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はOAuthログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordProfileUpdate はプロフィール更新の結果を記録する。
// resultは"success"またはエラーコード。
func (c *Collector) RecordProfileUpdate(result string) {
	c.profileUpdate.WithLabelValues(result).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// SetActiveSessions は有効セッション数を記録する。
func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

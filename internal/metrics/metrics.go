// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordUpstreamCall(api, operation string, success bool, duration time.Duration)
	RecordTokenRefresh(success bool)
	RecordAIFallback(operation string)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	tokenRefresh    *prometheus.CounterVec
	aiFallback      *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replix_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replix_upstream_calls_total",
			Help: "外部API呼び出しの合計数（API・操作・結果別）",
		}, []string{"api", "operation", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "replix_upstream_latency_seconds",
			Help:    "外部API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"api"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replix_token_refresh_total",
			Help: "アクセストークンのリフレッシュ試行の合計数（結果別）",
		}, []string{"result"}),
		aiFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replix_ai_fallback_total",
			Help: "LLM呼び出し失敗によるフォールバックの合計数（操作別）",
		}, []string{"operation"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replix_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.upstreamCalls,
		c.upstreamLatency,
		c.tokenRefresh,
		c.aiFallback,
		c.sessionsCleaned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamCall は外部API呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordUpstreamCall(api, operation string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.upstreamCalls.WithLabelValues(api, operation, result).Inc()
	c.upstreamLatency.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordTokenRefresh はアクセストークンのリフレッシュ試行を記録する。
func (c *Collector) RecordTokenRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.tokenRefresh.WithLabelValues(result).Inc()
}

// RecordAIFallback はLLM呼び出し失敗によるフォールバックを記録する。
func (c *Collector) RecordAIFallback(operation string) {
	c.aiFallback.WithLabelValues(operation).Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

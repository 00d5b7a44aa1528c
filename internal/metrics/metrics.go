// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute はルーティングされなかったリクエストのrouteラベル。
// 生のパスをラベルに使うとカーディナリティが発散する。
const unmatchedRoute = "unmatched"

// Collector はPrometheusメトリクスを収集する実装。
// pipeline.Observerを満たし、ゲートの拒否とハンドラーエラーも記録する。
type Collector struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	pipelineRejections *prometheus.CounterVec
	domainErrors       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projectboard_http_requests_total",
			Help: "メソッド・ルート・ステータス別のリクエスト数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "projectboard_http_request_duration_seconds",
			Help:    "リクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		pipelineRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projectboard_pipeline_rejections_total",
			Help: "ステップ別のゲート拒否数",
		}, []string{"stage"}),
		domainErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projectboard_handler_errors_total",
			Help: "エラータグ別のハンドラーエラー数",
		}, []string{"tag"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.pipelineRejections,
		c.domainErrors,
	)

	return c
}

// RecordHTTPRequest は1リクエストの結果を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = unmatchedRoute
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRejection はゲートの拒否をステップ別に記録する。
func (c *Collector) ObserveRejection(stage string) {
	c.pipelineRejections.WithLabelValues(stage).Inc()
}

// ObserveHandlerError はハンドラーが返したエラーをタグ別に記録する。
func (c *Collector) ObserveHandlerError(tag string) {
	c.domainErrors.WithLabelValues(tag).Inc()
}

// Middleware はリクエストごとのステータスと処理時間を記録するミドルウェアを返す。
// routeラベルにはchiのルートパターンを使う。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			c.RecordHTTPRequest(r.Method, routePattern(r), rec.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.status = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wroteHeader = true
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// PrometheusMetrics Prometheus 指标收集器
type PrometheusMetrics struct {
	logger *logrus.Logger

	// HTTP 请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	scansTotal            *prometheus.CounterVec
	scanDuration          prometheus.Histogram
	signatureMatchesTotal prometheus.Counter
	queueDepth            prometheus.Gauge
}

// NewPrometheusMetrics 创建 Prometheus 指标收集器
func NewPrometheusMetrics(logger *logrus.Logger, namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = "cyberknights"
	}

	pm := &PrometheusMetrics{
		logger: logger,

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		),

		scansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of APK scans by classification",
			},
			[]string{"classification"}, // Safe, Medium Risk, High Risk
		),
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "APK scan duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		signatureMatchesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signature_matches_total",
				Help:      "Total number of malware signature matches",
			},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scan_queue_depth",
				Help:      "Number of messages waiting in the scan queue",
			},
		),
	}

	logger.WithField("namespace", namespace).Info("Prometheus metrics initialized")

	return pm
}

// HTTPMiddleware Gin 请求指标中间件
func (pm *PrometheusMetrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		pm.httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		pm.httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(startTime).Seconds())
	}
}

// MetricsHandler /metrics 端点
func (pm *PrometheusMetrics) MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordScan 记录一次扫描完成（实现 service.ScanMetrics）
func (pm *PrometheusMetrics) RecordScan(classification string, durationSeconds float64) {
	pm.scansTotal.WithLabelValues(classification).Inc()
	pm.scanDuration.Observe(durationSeconds)
}

// RecordSignatureMatch 记录一次签名命中
func (pm *PrometheusMetrics) RecordSignatureMatch() {
	pm.signatureMatchesTotal.Inc()
}

// SetQueueDepth 更新扫描队列深度
func (pm *PrometheusMetrics) SetQueueDepth(depth int) {
	pm.queueDepth.Set(float64(depth))
}

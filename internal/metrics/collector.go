package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 推理请求指标
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	busyRetries     *prometheus.CounterVec

	// 批处理任务指标
	tasksTotal    *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	tasksInFlight prometheus.Gauge

	// 检测结果指标
	detectionsTotal *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 推理请求指标
	c.requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      "Total number of inference service requests",
		},
		[]string{"endpoint", "status"},
	)

	c.requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_request_duration_seconds",
			Help:      "Inference request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	c.busyRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "busy_retries_total",
			Help:      "Total number of retries triggered by a busy service",
		},
		[]string{"endpoint"},
	)

	// 批处理任务指标
	c.tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_tasks_total",
			Help:      "Total number of finished batch tasks",
		},
		[]string{"mode", "result"},
	)

	c.taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_task_duration_seconds",
			Help:      "End-to-end batch task duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	c.tasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Number of batch tasks currently executing",
		},
	)

	// 检测结果指标
	c.detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Total number of detections by class label",
		},
		[]string{"label"},
	)

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of detection cache hits",
		},
		[]string{"tier"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of detection cache misses",
		},
		[]string{"tier"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 推理请求指标记录
// =============================================================================

// RecordRequest 记录一次 HTTP 交换；status 为 0 表示传输层失败
func (c *Collector) RecordRequest(endpoint string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(endpoint, statusCode(status)).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordBusyRetry 记录一次 busy 触发的重试
func (c *Collector) RecordBusyRetry(endpoint string) {
	c.busyRetries.WithLabelValues(endpoint).Inc()
}

// =============================================================================
// 🧵 批处理任务指标记录
// =============================================================================

// RecordTask 记录一个任务终态
func (c *Collector) RecordTask(mode string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.tasksTotal.WithLabelValues(mode, result).Inc()
	c.taskDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// TaskStarted 任务进入执行
func (c *Collector) TaskStarted() {
	c.tasksInFlight.Inc()
}

// TaskFinished 任务离开执行
func (c *Collector) TaskFinished() {
	c.tasksInFlight.Dec()
}

// RecordDetection 按类别累计一条检测结果
func (c *Collector) RecordDetection(label string) {
	c.detectionsTotal.WithLabelValues(label).Inc()
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(tier string) {
	c.cacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(tier string) {
	c.cacheMisses.WithLabelValues(tier).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

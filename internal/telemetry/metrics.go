package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob — имя job для Pushgateway по умолчанию.
const DefaultJob = "aybuctl"

// Metrics — счётчики одного запуска CLI.
//
// CLI живёт секунды, поэтому метрики не отдаются через /metrics,
// а отправляются в Pushgateway при завершении команды (см. Push).
// Все методы безопасны для nil-получателя: метрики опциональны.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tasks           *prometheus.CounterVec
	events          *prometheus.CounterVec
}

// NewMetrics создаёт набор метрик в собственном registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aybuctl_http_requests_total",
			Help: "HTTP requests sent to the manager API",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aybuctl_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aybuctl_tasks_total",
			Help: "Tasks executed, by terminal state",
		}, []string{"state"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aybuctl_task_events_total",
			Help: "Task events received from the subscription feed, by severity",
		}, []string{"severity"}),
	}

	m.registry.MustRegister(m.requests, m.requestDuration, m.tasks, m.events)
	return m
}

// Registry возвращает registry с метриками.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest учитывает HTTP-запрос. code=0 — ответа не было.
func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	label := "none"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(method, label).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// TaskDone учитывает задачу, дошедшую до финального состояния.
func (m *Metrics) TaskDone(state string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(state).Inc()
}

// EventReceived учитывает событие из подписки.
func (m *Metrics) EventReceived(severity string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(severity).Inc()
}

// Push отправляет метрики в Pushgateway по адресу url.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if job == "" {
		job = DefaultJob
	}

	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

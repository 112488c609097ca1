// Package metrics — прометей-метрики guestbook-service.
// Все методы безопасны для nil-получателя: сервис можно собрать без метрик (тесты, CLI).
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "guestbook"

// Metrics — набор счётчиков доменных событий и длительности HTTP-запросов.
type Metrics struct {
	submissions *prometheus.CounterVec
	moderations *prometheus.CounterVec
	likes       *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New создаёт и регистрирует метрики в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Guest message submissions by result.",
		}, []string{"result"}),
		moderations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderations_total",
			Help:      "Moderation transitions by action and result.",
		}, []string{"action", "result"}),
		likes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_total",
			Help:      "Like/unlike calls by kind and result.",
		}, []string{"kind", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by policy.",
		}, []string{"policy"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	reg.MustRegister(m.submissions, m.moderations, m.likes, m.rateLimited, m.httpLatency)

	return m
}

// Result — метка исхода операции по ошибке.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Submission(err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(Result(err)).Inc()
}

func (m *Metrics) Moderation(action string, err error) {
	if m == nil {
		return
	}
	m.moderations.WithLabelValues(action, Result(err)).Inc()
}

func (m *Metrics) Like(kind string, err error) {
	if m == nil {
		return
	}
	m.likes.WithLabelValues(kind, Result(err)).Inc()
}

func (m *Metrics) RateLimited(policy string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(policy).Inc()
}

// ObserveHTTP — route должен быть шаблоном маршрута (chi pattern), а не сырым путём.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Package metrics собирает счётчики Prometheus по работе бота
// и отдаёт их на /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder используется сервисным слоем для записи метрик.
type Recorder interface {
	RecordMessage(sender string)
	RecordCompletionFailure()
	RecordCompletionLatency(duration time.Duration)
	RecordAccessDenied()
	RecordPayment(currency string)
}

type Collector struct {
	messages          *prometheus.CounterVec
	completionFail    prometheus.Counter
	completionLatency prometheus.Histogram
	accessDenied      prometheus.Counter
	payments          *prometheus.CounterVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psybot_dialogue_messages_total",
			Help: "Количество сохранённых реплик диалога по отправителю",
		}, []string{"sender"}),
		completionFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psybot_completion_failures_total",
			Help: "Количество неудачных обращений к языковой модели",
		}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "psybot_completion_latency_seconds",
			Help:    "Длительность обращений к языковой модели",
			Buckets: prometheus.DefBuckets,
		}),
		accessDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psybot_access_denied_total",
			Help: "Количество сообщений, отклонённых из-за истёкшей подписки",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psybot_payments_total",
			Help: "Количество зафиксированных успешных платежей по валюте",
		}, []string{"currency"}),
	}

	reg.MustRegister(
		c.messages,
		c.completionFail,
		c.completionLatency,
		c.accessDenied,
		c.payments,
	)

	return c
}

func (c *Collector) RecordMessage(sender string) {
	c.messages.WithLabelValues(sender).Inc()
}

func (c *Collector) RecordCompletionFailure() {
	c.completionFail.Inc()
}

func (c *Collector) RecordCompletionLatency(duration time.Duration) {
	c.completionLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordAccessDenied() {
	c.accessDenied.Inc()
}

func (c *Collector) RecordPayment(currency string) {
	c.payments.WithLabelValues(currency).Inc()
}

// Handler возвращает HTTP-обработчик для скрейпа Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

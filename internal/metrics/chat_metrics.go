package metrics

import (
	"time"

	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChatMetrics интерфейс для метрик обработки сообщений
type ChatMetrics interface {
	IncMessageProcessed(tier, provider string)
	IncQuotaDenied(kind string)
	IncGenerationFailed(provider string)
	IncLengthRetry(provider string)
	IncFallbackServed(tier string)
	ObserveGenerationDuration(provider string, duration time.Duration)
}

type chatMetrics struct {
	log                *logger.Logger
	messagesProcessed  *prometheus.CounterVec
	quotaDenied        *prometheus.CounterVec
	generationFailed   *prometheus.CounterVec
	lengthRetries      *prometheus.CounterVec
	fallbacksServed    *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
}

// NewChatMetrics создает новые метрики обработки сообщений
func NewChatMetrics(registry *prometheus.Registry, log *logger.Logger) ChatMetrics {
	messagesProcessed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_processed_total",
			Help: "The total number of successfully processed chat messages",
		},
		[]string{"tier", "provider"},
	)

	quotaDenied := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_quota_denied_total",
			Help: "The total number of requests rejected by quota checks",
		},
		[]string{"kind"},
	)

	generationFailed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_generation_failed_total",
			Help: "The total number of failed generation attempts",
		},
		[]string{"provider"},
	)

	lengthRetries := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_length_retries_total",
			Help: "The total number of regeneration attempts caused by over-length responses",
		},
		[]string{"provider"},
	)

	fallbacksServed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fallbacks_served_total",
			Help: "The total number of fallback responses served after exhausted retries",
		},
		[]string{"tier"},
	)

	generationDuration := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_generation_duration_seconds",
			Help:    "Model generation call durations",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		},
		[]string{"provider"},
	)

	return &chatMetrics{
		log:                log,
		messagesProcessed:  messagesProcessed,
		quotaDenied:        quotaDenied,
		generationFailed:   generationFailed,
		lengthRetries:      lengthRetries,
		fallbacksServed:    fallbacksServed,
		generationDuration: generationDuration,
	}
}

// IncMessageProcessed увеличивает счетчик обработанных сообщений
func (m *chatMetrics) IncMessageProcessed(tier, provider string) {
	m.messagesProcessed.WithLabelValues(tier, provider).Inc()
}

// IncQuotaDenied увеличивает счетчик отказов по квоте
func (m *chatMetrics) IncQuotaDenied(kind string) {
	m.quotaDenied.WithLabelValues(kind).Inc()
}

// IncGenerationFailed увеличивает счетчик ошибок генерации
func (m *chatMetrics) IncGenerationFailed(provider string) {
	m.generationFailed.WithLabelValues(provider).Inc()
}

// IncLengthRetry увеличивает счетчик повторных генераций из-за превышения длины
func (m *chatMetrics) IncLengthRetry(provider string) {
	m.lengthRetries.WithLabelValues(provider).Inc()
}

// IncFallbackServed увеличивает счетчик отданных ответов-заглушек
func (m *chatMetrics) IncFallbackServed(tier string) {
	m.fallbacksServed.WithLabelValues(tier).Inc()
}

// ObserveGenerationDuration записывает длительность обращения к бэкенду генерации
func (m *chatMetrics) ObserveGenerationDuration(provider string, duration time.Duration) {
	m.generationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

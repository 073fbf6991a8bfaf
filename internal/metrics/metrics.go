package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит счётчики и гистограммы сервиса заказов.
type Metrics struct {
	// Счётчики операций жизненного цикла
	ordersCreated prometheus.Counter
	ordersUpdated prometheus.Counter
	ordersDeleted prometheus.Counter

	// Счётчики публикации событий
	eventsPublished     prometheus.Counter
	eventsPublishFailed prometheus.Counter

	// Счётчики кэша выборок
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Гистограмма времени обработки HTTP-запросов
	httpDuration *prometheus.HistogramVec
}

// New создаёт метрики в default-реестре Prometheus.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer создаёт метрики в указанном реестре (используется в тестах).
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_updated_total",
			Help: "Total number of orders updated",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		eventsPublished: registerCounter(registerer, prometheus.CounterOpts{
			Name: "order_events_published_total",
			Help: "Total number of status change events published",
		}),
		eventsPublishFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "order_events_publish_failed_total",
			Help: "Total number of status change events that failed to publish",
		}),
		cacheHits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_query_cache_hits_total",
			Help: "Total number of order list queries served from cache",
		}),
		cacheMisses: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_query_cache_misses_total",
			Help: "Total number of order list queries that missed the cache",
		}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route", "status"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *Metrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderUpdated увеличивает счётчик обновлённых заказов.
func (m *Metrics) RecordOrderUpdated() {
	m.ordersUpdated.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *Metrics) RecordOrderDeleted() {
	m.ordersDeleted.Inc()
}

// RecordEventPublished увеличивает счётчик опубликованных событий.
func (m *Metrics) RecordEventPublished() {
	m.eventsPublished.Inc()
}

// RecordEventPublishFailed увеличивает счётчик неудачных публикаций.
func (m *Metrics) RecordEventPublishFailed() {
	m.eventsPublishFailed.Inc()
}

// RecordCacheHit увеличивает счётчик попаданий в кэш выборок.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss увеличивает счётчик промахов кэша выборок.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordHTTPRequest записывает длительность обработки HTTP-запроса.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.httpDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

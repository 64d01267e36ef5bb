package metrics

import (
	"strconv"
	"sync"
	"time"

	"shareit/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shareit"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by service, route and status.",
		},
		[]string{"service", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by service and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)

	domainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Published domain events by type.",
		},
		[]string{"type"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_rate_limited_total",
			Help:      "Requests rejected by the gateway rate limiter.",
		},
	)

	backups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Database backups by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, domainEvents, rateLimited, backups)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(service, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(service, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(service, route).Observe(elapsed.Seconds())
}

// IncRateLimited counts a request refused by the rate limiter.
func IncRateLimited() {
	rateLimited.Inc()
}

// IncBackup counts a backup attempt.
func IncBackup(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	backups.WithLabelValues(result).Inc()
}

// SubscribeEvents counts every domain event published on the bus.
func SubscribeEvents(bus *events.EventBus) {
	bus.SubscribeAll(func(event *events.Event) error {
		domainEvents.WithLabelValues(event.Type).Inc()
		return nil
	}, events.AllEventTypes...)
}

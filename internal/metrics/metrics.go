package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
	eventsDropped     *prometheus.CounterVec
	liveSubscribers   prometheus.Gauge
	registerOnce      sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the poll API.",
		}, []string{"method", "path", "status"})

		eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "events_total",
			Help:      "Domain events dispatched, by type.",
		}, []string{"type"})

		eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "events_dropped_total",
			Help:      "Domain events dropped because the dispatch buffer was full.",
		}, []string{"type"})

		liveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "livepoll",
			Name:      "live_subscribers",
			Help:      "Open websocket connections watching poll results.",
		})
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncEventsDropped(eventType string) {
	if eventsDropped == nil {
		return
	}
	eventsDropped.WithLabelValues(eventType).Inc()
}

func AddLiveSubscribers(delta float64) {
	if liveSubscribers == nil {
		return
	}
	liveSubscribers.Add(delta)
}

// EventCounter counts dispatched domain events.
type EventCounter struct{}

func (EventCounter) HandleEvent(ctx context.Context, ev domain.Event) error {
	if eventsTotal != nil {
		eventsTotal.WithLabelValues(string(ev.Type)).Inc()
	}
	return nil
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reserveit",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reserveit",
			Name:      "reservations_created_total",
			Help:      "Reservations committed in pending status.",
		},
	)

	reservationsCanceled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reserveit",
			Name:      "reservations_canceled_total",
			Help:      "Reservations moved to canceled status.",
		},
	)

	reservationsFinished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reserveit",
			Name:      "reservations_finished_total",
			Help:      "Reservations auto-finished by the lifecycle sweep.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			reservationsCreated,
			reservationsCanceled,
			reservationsFinished,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncReservationsCreated() {
	reservationsCreated.Inc()
}

func IncReservationsCanceled() {
	reservationsCanceled.Inc()
}

// AddReservationsFinished accounts a sweep that finished n reservations.
func AddReservationsFinished(n int64) {
	reservationsFinished.Add(float64(n))
}

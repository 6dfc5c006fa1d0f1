package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics counts requests per command and status and times them per command
type Metrics struct {
	set *metrics.Set
}

func NewMetrics() *Metrics {
	return &Metrics{set: metrics.NewSet()}
}

// observe records one request. Unknown command names share one label to bound cardinality
func (m *Metrics) observe(name string, status int, start time.Time) {
	if m == nil {
		return
	}
	if _, ok := commandRegistry[name]; !ok && name != "head" {
		name = "unknown"
	}

	m.set.GetOrCreateCounter(fmt.Sprintf(`phonebook_requests_total{command=%q,status="%d"}`, name, status)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`phonebook_request_duration_seconds{command=%q}`, name)).UpdateDuration(start)
}

// ServeHTTP writes the request metrics and the process metrics in Prometheus text format
func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m.set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

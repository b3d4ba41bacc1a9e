package auth

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusActivitySink counts activity events by type
type PrometheusActivitySink struct {
	events *prometheus.CounterVec
}

var _ ActivitySink = (*PrometheusActivitySink)(nil)

// NewPrometheusActivitySink registers auth_events_total on reg. A nil reg
// uses the default registerer.
func NewPrometheusActivitySink(reg prometheus.Registerer) (*PrometheusActivitySink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Authentication and session events by type.",
	}, []string{"event"})

	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			events = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PrometheusActivitySink{events: events}, nil
}

func (s *PrometheusActivitySink) Record(_ context.Context, event ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

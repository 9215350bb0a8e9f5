package metrics

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by ClientMetrics.
const (
	OutcomeSuccess        = "success"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
)

// Config selects and configures a Registry.
type Config struct {
	// PushURL enables push mode when set.
	PushURL string
	Prefix  string
	Job     string
	Logger  *slog.Logger
}

// NewRegistry returns a PushRegistry when cfg.PushURL is set and a ScrapeRegistry otherwise.
func NewRegistry(cfg Config) (Registry, error) {
	if cfg.PushURL == "" {
		return NewScrapeRegistry()
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get hostname: %w", err)
	}

	return NewPushRegistry(PushConfig{
		URL:      cfg.PushURL,
		Prefix:   cfg.Prefix,
		Job:      cfg.Job,
		Instance: hostname,
		Logger:   cfg.Logger,
	}), nil
}

// ClientMetrics holds the metrics recorded by the activities API client.
type ClientMetrics struct {
	requests   CounterVec
	activities Gauge
}

// NewClientMetrics registers the client metrics with registry.
func NewClientMetrics(registry Registry) (*ClientMetrics, error) {
	requests, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "requests_total",
		Help: "Activities API requests by operation and outcome.",
	}, []string{"operation", "outcome"})
	if err != nil {
		return nil, err
	}

	activities, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_activities",
		Help: "Number of activities in the last loaded catalog.",
	})
	if err != nil {
		return nil, err
	}

	return &ClientMetrics{
		requests:   requests,
		activities: activities,
	}, nil
}

// ObserveRequest counts one API call. A nil receiver records nothing.
func (m *ClientMetrics) ObserveRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.requests.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}

// SetCatalogSize records the number of activities in the last loaded catalog.
func (m *ClientMetrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.activities.Set(float64(n))
}

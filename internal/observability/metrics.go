// Package observability exports client call metrics to Prometheus.
package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"groqkit/pkg/groq"
)

// Metrics holds the collectors fed by the client hooks.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Tokens   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groqkit_requests_total",
			Help: "Total number of Groq API calls by operation, model and outcome",
		}, []string{"operation", "model", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "groqkit_request_duration_seconds",
			Help:    "Duration of Groq API calls, body read included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groqkit_tokens_total",
			Help: "Tokens reported by chat completions",
		}, []string{"model", "kind"}),
	}
	reg.MustRegister(m.Requests, m.Duration, m.Tokens)
	return m
}

// Hooks returns client hooks that record every finished call.
func (m *Metrics) Hooks() groq.Hooks {
	return groq.Hooks{
		OnRequestEnd: func(_ context.Context, info groq.ResponseInfo) {
			op := string(info.Operation)
			m.Requests.WithLabelValues(op, info.Model, statusLabel(info)).Inc()
			m.Duration.WithLabelValues(op, info.Model).Observe(info.Duration.Seconds())

			if info.Usage != nil {
				m.Tokens.WithLabelValues(info.Model, "prompt").Add(float64(info.Usage.PromptTokens))
				m.Tokens.WithLabelValues(info.Model, "completion").Add(float64(info.Usage.CompletionTokens))
			}
		},
	}
}

// NewPrometheusHooks is shorthand for NewMetrics(reg).Hooks().
func NewPrometheusHooks(reg prometheus.Registerer) groq.Hooks {
	return NewMetrics(reg).Hooks()
}

// statusLabel is the HTTP status when one was received, otherwise the error kind.
func statusLabel(info groq.ResponseInfo) string {
	if info.StatusCode != 0 {
		if info.Err != nil && info.StatusCode < 300 {
			return string(groq.KindOf(info.Err))
		}
		return strconv.Itoa(info.StatusCode)
	}
	if info.Err != nil {
		return string(groq.KindOf(info.Err))
	}
	return "unknown"
}

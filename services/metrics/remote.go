package metricsvc

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/crud"
)

// Outcomes
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeSchema   = "schema_mismatch"
	OutcomeRemote   = "remote_error"
	OutcomeError    = "error"
)

// RemoteCalls counts and times the calls the crud adapters make to the remote service.
type RemoteCalls struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ crud.Observer = (*RemoteCalls)(nil)

func NewRemoteCalls(namespace string) *RemoteCalls {
	m := &RemoteCalls{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Remote data service calls by table, operation and outcome.",
		}, []string{"table", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Remote data service call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}),
	}
	m.registry.MustRegister(
		m.calls,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *RemoteCalls) ObserveCall(table, op string, err error, elapsed time.Duration) {
	m.calls.WithLabelValues(table, op, Outcome(err)).Inc()
	m.duration.WithLabelValues(table, op).Observe(elapsed.Seconds())
}

// Handler exposes the metrics in the Prometheus text format.
func (m *RemoteCalls) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Cause(err) == core.ErrNotFound:
		return OutcomeNotFound
	case core.IsSchemaMismatch(err):
		return OutcomeSchema
	case core.IsRemote(err):
		return OutcomeRemote
	}
	return OutcomeError
}

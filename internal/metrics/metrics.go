// Package metrics exposes Prometheus collectors for the poll lifecycle,
// the scheduler and the messaging gateway.
package metrics

import (
	"strconv"
	"time"

	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements poll.Observer and cron.FiringObserver.
type PrometheusMetrics struct {
	registry          prometheus.Registerer
	pollsOpened       prometheus.Counter
	pollsClosed       prometheus.Counter
	pollsActive       prometheus.Gauge
	votesTotal        *prometheus.CounterVec
	voteResets        prometheus.Counter
	gatewayFailures   *prometheus.CounterVec
	gatewayDuration   *prometheus.HistogramVec
	jobsFired         *prometheus.CounterVec
	jobsRegistered    prometheus.Gauge
	schedulesTotal    prometheus.Gauge
	interactionsTotal *prometheus.CounterVec
}

// InitPrometheusMetrics creates and registers all collectors. A nil
// registerer means prometheus.DefaultRegisterer.
func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		registry: reg,
		pollsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_opened_total",
			Help:      "Total number of polls opened",
		}),
		pollsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_closed_total",
			Help:      "Total number of polls closed",
		}),
		pollsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "polls_active",
			Help:      "Number of currently open polls",
		}),
		votesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total number of recorded vote changes",
		}, []string{"option"}),
		voteResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_resets_total",
			Help:      "Total number of vote resets",
		}),
		gatewayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_failures_total",
			Help:      "Total number of failed messaging gateway calls",
		}, []string{"op"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Duration of messaging gateway calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op", "status"}),
		jobsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_jobs_fired_total",
			Help:      "Total number of fired scheduler jobs",
		}, []string{"phase"}),
		jobsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_jobs",
			Help:      "Number of registered scheduler jobs",
		}),
		schedulesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedules",
			Help:      "Number of configured schedules",
		}),
		interactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Inbound button presses by kind and result",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(
		m.pollsOpened,
		m.pollsClosed,
		m.pollsActive,
		m.votesTotal,
		m.voteResets,
		m.gatewayFailures,
		m.gatewayDuration,
		m.jobsFired,
		m.jobsRegistered,
		m.schedulesTotal,
		m.interactionsTotal,
	)

	return m
}

// RegisterHealth exports the gateway failure streak as a gauge.
func (m *PrometheusMetrics) RegisterHealth(namespace string, h *poll.Health) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gateway_consecutive_failures",
		Help:      "Current streak of failed messaging gateway calls",
	}, func() float64 {
		return float64(h.ConsecutiveFailures())
	}))
}

func (m *PrometheusMetrics) PollOpened(int64) {
	m.pollsOpened.Inc()
}

func (m *PrometheusMetrics) PollClosed(int64) {
	m.pollsClosed.Inc()
}

func (m *PrometheusMetrics) ActivePolls(n int) {
	m.pollsActive.Set(float64(n))
}

func (m *PrometheusMetrics) VoteRecorded(option poll.Option) {
	m.votesTotal.WithLabelValues(option.String()).Inc()
}

func (m *PrometheusMetrics) VoteReset() {
	m.voteResets.Inc()
}

func (m *PrometheusMetrics) GatewayFailure(op string) {
	m.gatewayFailures.WithLabelValues(op).Inc()
}

// ObserveGateway records the duration of one gateway request.
func (m *PrometheusMetrics) ObserveGateway(op string, ok bool, d time.Duration) {
	m.gatewayDuration.WithLabelValues(op, strconv.FormatBool(ok)).Observe(d.Seconds())
}

func (m *PrometheusMetrics) JobFired(phase string) {
	m.jobsFired.WithLabelValues(phase).Inc()
}

func (m *PrometheusMetrics) JobsRegistered(n int) {
	m.jobsRegistered.Set(float64(n))
}

// SetSchedules records the number of configured schedules.
func (m *PrometheusMetrics) SetSchedules(n int) {
	m.schedulesTotal.Set(float64(n))
}

// Interaction counts an inbound button press.
func (m *PrometheusMetrics) Interaction(kind, result string) {
	m.interactionsTotal.WithLabelValues(kind, result).Inc()
}

package observability

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	escalations      *prometheus.CounterVec
	ruleEscalations  *prometheus.CounterVec
	customerActions  *prometheus.CounterVec
	deadlines        *prometheus.CounterVec
	escalationRuns   prometheus.Counter
	escalationActive prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_http_requests_total",
				Help: "HTTP requests by route, method and status.",
			},
			[]string{"path", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sla_http_request_duration_seconds",
				Help:    "HTTP request latency by route and method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_http_errors_total",
				Help: "HTTP errors by route, method and error code.",
			},
			[]string{"path", "method", "code"},
		),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_status_transitions_total",
				Help: "SLA status transitions by service level and new status.",
			},
			[]string{"service_level", "status"},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_escalations_reached_total",
				Help: "Internal escalation levels newly reached by service level and level.",
			},
			[]string{"service_level", "level"},
		),
		ruleEscalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_rule_escalations_reached_total",
				Help: "Percentage escalation rules newly reached by service level and threshold.",
			},
			[]string{"service_level", "percentage"},
		),
		customerActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_customer_actions_due_total",
				Help: "Customer inaction rules newly due by service level and action.",
			},
			[]string{"service_level", "action"},
		),
		deadlines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sla_deadline_computations_total",
				Help: "Deadline computations by service level, priority and service hours.",
			},
			[]string{"service_level", "priority", "service_hours"},
		),
		escalationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_escalation_runs_total",
			Help: "Completed escalation sweeps.",
		}),
		escalationActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sla_active_instances",
			Help: "Unresolved SLA instances seen by the last escalation sweep.",
		}),
	}
	m.Registry.MustRegister(
		m.requests, m.requestDuration, m.errors,
		m.statusChanges, m.escalations, m.ruleEscalations, m.customerActions, m.deadlines,
		m.escalationRuns, m.escalationActive,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordStatusChange counts an SLA status transition.
func (m *Metrics) RecordStatusChange(serviceLevel, status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(serviceLevel, status).Inc()
}

// RecordEscalation counts a newly reached internal escalation level.
func (m *Metrics) RecordEscalation(serviceLevel string, level int) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(serviceLevel, strconv.Itoa(level)).Inc()
}

// RecordRuleEscalation counts a newly reached percentage rule.
func (m *Metrics) RecordRuleEscalation(serviceLevel string, percentage int) {
	if m == nil {
		return
	}
	m.ruleEscalations.WithLabelValues(serviceLevel, strconv.Itoa(percentage)).Inc()
}

// RecordCustomerAction counts a newly due customer action.
func (m *Metrics) RecordCustomerAction(serviceLevel, action string) {
	if m == nil {
		return
	}
	m.customerActions.WithLabelValues(serviceLevel, action).Inc()
}

// RecordDeadline counts a deadline computation.
func (m *Metrics) RecordDeadline(serviceLevel, priority, serviceHours string) {
	if m == nil {
		return
	}
	m.deadlines.WithLabelValues(serviceLevel, priority, serviceHours).Inc()
}

// RecordEscalationRun records a finished sweep over active instances.
func (m *Metrics) RecordEscalationRun(active int) {
	if m == nil {
		return
	}
	m.escalationRuns.Inc()
	m.escalationActive.Set(float64(active))
}

// WatchPool exposes connection gauges of the Postgres pool. A nil pool, as in
// in-memory mode, registers nothing.
func (m *Metrics) WatchPool(pool *pgxpool.Pool) {
	if m == nil || pool == nil {
		return
	}
	gauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(value(pool.Stat()))
		})
	}
	m.Registry.MustRegister(
		gauge("sla_db_pool_acquired_conns", "Connections currently checked out of the pool.", (*pgxpool.Stat).AcquiredConns),
		gauge("sla_db_pool_idle_conns", "Idle connections in the pool.", (*pgxpool.Stat).IdleConns),
		gauge("sla_db_pool_total_conns", "Open connections in the pool.", (*pgxpool.Stat).TotalConns),
	)
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Agent holds the collectors for turn orchestration. A nil *Agent is valid
// and records nothing.
type Agent struct {
	registry *prometheus.Registry

	turnsTotal        *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	toolCallsTotal    *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	routerIntents     *prometheus.CounterVec
	reflectionVerdict *prometheus.CounterVec
	memoryHookTotal   *prometheus.CounterVec
	loopCeilingTotal  *prometheus.CounterVec
	llmCostUSD        *prometheus.CounterVec
}

func NewAgent(service string) *Agent {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &Agent{
		registry: registry,
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "turns_total",
			Help: "Completed turns by topology and status.", ConstLabels: constLabels,
		}, []string{"topology", "status"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "turn_duration_seconds",
			Help: "Wall-clock duration of a turn.", ConstLabels: constLabels,
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"topology"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "tool_calls_total",
			Help: "Executed tool calls by tool and status.", ConstLabels: constLabels,
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "tool_duration_seconds",
			Help: "Tool handler duration.", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		routerIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "router_intents_total",
			Help: "Router classifications by intent and source.", ConstLabels: constLabels,
		}, []string{"intent", "source"}),
		reflectionVerdict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "reflection_verdicts_total",
			Help: "Reflector outcomes.", ConstLabels: constLabels,
		}, []string{"verdict"}),
		memoryHookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "memory_hook_total",
			Help: "Memory post-hook outcomes.", ConstLabels: constLabels,
		}, []string{"status"}),
		loopCeilingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "loop_ceiling_total",
			Help: "Turns terminated by an iteration ceiling.", ConstLabels: constLabels,
		}, []string{"ceiling"}),
		llmCostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dinewise", Subsystem: "agent", Name: "llm_cost_usd_total",
			Help: "Estimated model spend in USD.", ConstLabels: constLabels,
		}, []string{"role", "model"}),
	}

	registry.MustRegister(
		m.turnsTotal, m.turnDuration, m.toolCallsTotal, m.toolDuration, m.routerIntents,
		m.reflectionVerdict, m.memoryHookTotal, m.loopCeilingTotal, m.llmCostUSD,
	)
	return m
}

func (m *Agent) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Agent) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Agent) ObserveTurn(topology, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(topology, status).Inc()
	m.turnDuration.WithLabelValues(topology).Observe(d.Seconds())
}

func (m *Agent) ObserveTool(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Agent) ObserveIntent(intent, source string) {
	if m == nil {
		return
	}
	m.routerIntents.WithLabelValues(intent, source).Inc()
}

func (m *Agent) ObserveReflection(verdict string) {
	if m == nil {
		return
	}
	m.reflectionVerdict.WithLabelValues(verdict).Inc()
}

func (m *Agent) ObserveMemoryHook(status string) {
	if m == nil {
		return
	}
	m.memoryHookTotal.WithLabelValues(status).Inc()
}

func (m *Agent) ObserveCeiling(ceiling string) {
	if m == nil {
		return
	}
	m.loopCeilingTotal.WithLabelValues(ceiling).Inc()
}

func (m *Agent) AddCost(role, model string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.llmCostUSD.WithLabelValues(role, model).Add(usd)
}

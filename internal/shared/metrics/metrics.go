// Package metrics 定义切换相关的 prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transition 是一组切换指标，按 registry 注册，测试里可以用独立 registry。
type Transition struct {
	Requests     *prometheus.CounterVec   // result=accepted|rejected|forwarded
	Completed    *prometheus.CounterVec   // result=ok|menu|fallback_primary|fallback_menu
	LoadAttempts *prometheus.CounterVec   // result=ok|failed
	PhaseSeconds *prometheus.HistogramVec // phase=snapshot|marker|unload|load|generate|resume
}

func NewTransition(reg prometheus.Registerer) *Transition {
	m := &Transition{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldshift",
			Name:      "transition_requests_total",
			Help:      "Transition requests by outcome.",
		}, []string{"result"}),
		Completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldshift",
			Name:      "transitions_completed_total",
			Help:      "Finished transitions by resolution.",
		}, []string{"result"}),
		LoadAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldshift",
			Name:      "world_load_attempts_total",
			Help:      "World file load attempts including backup retries.",
		}, []string{"result"}),
		PhaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "worldshift",
			Name:      "transition_phase_seconds",
			Help:      "Duration of each transition pipeline phase.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Completed, m.LoadAttempts, m.PhaseSeconds)
	}
	return m
}

package web

import (
	"github.com/prometheus/client_golang/prometheus"
)

// newRegistry exposes the controller and hub as scrape-time gauges.
func (s *Server) newRegistry() *prometheus.Registry {
	snapshot := func(f func(state, cycles int) int) func() float64 {
		return func() float64 {
			ctrl := s.ctrl()
			if ctrl == nil {
				return 0
			}
			snap := ctrl.Snapshot()
			return float64(f(int(snap.State), snap.CycleCount))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scanboard_state",
			Help: "Controller state (0 idle, 1 scanning, 2 paused, 3 suspended, 4 listening)",
		}, snapshot(func(state, _ int) int { return state })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scanboard_cycles",
			Help: "Completed scan cycles since the last start",
		}, snapshot(func(_, cycles int) int { return cycles })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scanboard_clients",
			Help: "Connected event clients",
		}, func() float64 { return float64(s.events.ClientCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "scanboard_events_dropped",
			Help: "Events dropped because the hub queue was full",
		}, func() float64 { return float64(s.events.Dropped()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "scanboard_presses_debounced",
			Help: "Browser presses dropped as part of an earlier click",
		}, func() float64 {
			if p := s.pressTarget(); p != nil {
				return float64(p.Dropped())
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "scanboard_history_entries",
			Help: "Spoken history entries",
		}, func() float64 {
			if s.cfg.History == nil {
				return 0
			}
			return float64(s.cfg.History.Count())
		}),
	)
	return reg
}

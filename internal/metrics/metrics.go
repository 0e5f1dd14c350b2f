// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes gate counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/lap_timer/internal/lap"
	"github.com/relabs-tech/lap_timer/internal/ranger"
)

const namespace = "laptimer"

// Metrics implements lap.Observer and command.Counter.
type Metrics struct {
	reg *prometheus.Registry

	RangingTimeouts prometheus.Counter
	Distance        prometheus.Gauge
	GateEntries     prometheus.Counter
	LapsRecorded    prometheus.Counter
	LastLapSeconds  prometheus.Gauge
	Commands        *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		RangingTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranging_timeouts_total",
			Help:      "Distance samples that returned no echo.",
		}),
		Distance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "distance_cm",
			Help:      "Most recent distance sample with an echo.",
		}),
		GateEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_entries_total",
			Help:      "Entered edges seen while armed.",
		}),
		LapsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "laps_recorded_total",
			Help:      "Lap durations written to the lap set.",
		}),
		LastLapSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_lap_seconds",
			Help:      "Duration of the most recently recorded lap.",
		}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Recognised inbound commands.",
		}, []string{"command"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications by kind.",
		}, []string{"kind"}),
	}
}

// ObserveDistance records one ranger sample.
func (m *Metrics) ObserveDistance(cm float64) {
	if cm >= ranger.NoEcho {
		m.RangingTimeouts.Inc()
		return
	}
	m.Distance.Set(cm)
}

func (m *Metrics) GateEntered() { m.GateEntries.Inc() }

func (m *Metrics) LapRecorded(seconds float64) {
	m.LapsRecorded.Inc()
	m.LastLapSeconds.Set(seconds)
}

func (m *Metrics) CommandHandled(name string) {
	m.Commands.WithLabelValues(name).Inc()
}

// CountNotifications wraps n so every message is counted by kind.
func (m *Metrics) CountNotifications(n lap.Notifier) lap.Notifier {
	return lap.NotifierFunc(func(msg string) {
		m.Notifications.WithLabelValues(Kind(msg)).Inc()
		n.Notify(msg)
	})
}

// Kind classifies an outbound message.
func Kind(msg string) string {
	switch msg {
	case lap.MsgStart, lap.MsgEnd, lap.MsgPong:
		return msg
	default:
		return "laps"
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

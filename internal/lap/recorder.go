// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lap

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Observer is told about gate activity, e.g. to feed metrics.
type Observer interface {
	GateEntered()
	LapRecorded(seconds float64)
}

// State is a point-in-time copy of the recorder.
type State struct {
	Armed      bool   `json:"armed"`
	Inside     bool   `json:"inside"`
	Timing     bool   `json:"timing"` // a lap clock is running
	CurrentLap int    `json:"current_lap"`
	Mode       Mode   `json:"mode"`
	Laps       LapSet `json:"laps"`
}

// Recorder is the lap state machine. The tick loop and command handlers may
// call it from different goroutines; each call is applied atomically and
// notifications go out after the state lock is released.
type Recorder struct {
	mu       sync.Mutex
	notifier Notifier
	observer Observer
	det      *Detector

	armed    bool
	mode     Mode
	laps     LapSet
	current  int
	timing   bool
	lapStart time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(r *Recorder) { r.observer = o }
}

// NewRecorder returns a disarmed recorder with an empty LapSet.
func NewRecorder(n Notifier, th Thresholds, opts ...Option) *Recorder {
	if n == nil {
		n = Discard
	}
	r := &Recorder{
		notifier: n,
		det:      NewDetector(th),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reset zeroes all laps, arms the gate in the given mode and immediately
// sends the empty LapSet.
func (r *Recorder) Reset(mode Mode) {
	r.mu.Lock()
	r.laps = LapSet{}
	r.current = 0
	r.timing = false
	r.lapStart = time.Time{}
	r.det.Clear()
	r.armed = true
	r.mode = mode
	snap := r.laps
	r.mu.Unlock()

	logrus.WithField("mode", mode).Info("reset: armed")
	r.notifier.Notify(snap.String())
}

// Stop disarms the gate. Recorded laps are kept.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.armed = false
	r.det.Clear()
	r.mu.Unlock()

	logrus.Info("stop: disarmed")
}

// Step runs one distance sample through the detector while armed and records
// a lap on Entered. It reports the edge seen, if any.
func (r *Recorder) Step(cm float64, now time.Time) (Edge, bool) {
	r.mu.Lock()
	if !r.armed {
		r.mu.Unlock()
		return 0, false
	}
	edge, ok := r.det.Update(cm)
	var out []string
	if ok && edge == Entered {
		out = r.enter(now)
	}
	r.mu.Unlock()

	r.send(out)
	return edge, ok
}

// Enter handles a fresh Entered edge at now. It is a no-op while disarmed.
func (r *Recorder) Enter(now time.Time) {
	r.mu.Lock()
	var out []string
	if r.armed {
		out = r.enter(now)
	}
	r.mu.Unlock()

	r.send(out)
}

// enter must be called with mu held and the recorder armed.
func (r *Recorder) enter(now time.Time) []string {
	if r.observer != nil {
		r.observer.GateEntered()
	}

	// First crossing since reset only starts the clock.
	if !r.timing {
		r.timing = true
		r.lapStart = now
		logrus.Info("first crossing: lap clock started")
		return []string{MsgStart}
	}

	elapsed := now.Sub(r.lapStart).Seconds()
	switch {
	case r.current < NumLaps:
		r.laps[r.current] = elapsed
		r.current++
	case r.mode == Rolling:
		copy(r.laps[:], r.laps[1:])
		r.laps[NumLaps-1] = elapsed
	default:
		// Normal mode disarms on completion, so a full set is never armed.
		return nil
	}
	r.lapStart = now

	logrus.WithFields(logrus.Fields{
		"lap":     r.current,
		"seconds": elapsed,
		"mode":    r.mode,
	}).Info("lap recorded")
	if r.observer != nil {
		r.observer.LapRecorded(elapsed)
	}

	if r.mode == Normal && r.current >= NumLaps {
		r.armed = false
		logrus.Infof("%d laps done: armed = false", NumLaps)
		return []string{MsgEnd}
	}
	return nil
}

func (r *Recorder) send(msgs []string) {
	for _, m := range msgs {
		r.notifier.Notify(m)
	}
}

// Snapshot returns a copy of the recorded laps.
func (r *Recorder) Snapshot() LapSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.laps
}

// Armed reports whether gate crossings are being recorded.
func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// State returns a copy of the full recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Armed:      r.armed,
		Inside:     r.det.Inside(),
		Timing:     r.timing,
		CurrentLap: r.current,
		Mode:       r.mode,
		Laps:       r.laps,
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scheduler runs the gate's single polling loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/lap_timer/internal/lap"
	"github.com/relabs-tech/lap_timer/internal/ranger"
)

// Intervals controls loop pacing. The two periodic actions keep separate
// timestamps and never wait on each other.
type Intervals struct {
	TickDelay   time.Duration // yield after every tick
	DistanceLog time.Duration // diagnostic distance line
	Telemetry   time.Duration // LapSet broadcast
}

// DefaultIntervals match the gate firmware: 10ms tick, 100ms log, 500ms broadcast.
var DefaultIntervals = Intervals{
	TickDelay:   10 * time.Millisecond,
	DistanceLog: 100 * time.Millisecond,
	Telemetry:   500 * time.Millisecond,
}

// Loop polls the ranger, drives the recorder and broadcasts telemetry.
// A tick, including every notification it sends, holds the loop's turn;
// commands run through Do so they land between ticks, never inside one.
type Loop struct {
	turn sync.Mutex

	ranger   ranger.Ranger
	rec      *lap.Recorder
	notifier lap.Notifier
	iv       Intervals
	log      logrus.FieldLogger
	now      func() time.Time
	onSample func(cm float64)

	lastDistLog time.Time
	lastSent    time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Loop) { l.log = log }
}

// WithSampleHook is called with every raw sample, e.g. for metrics.
func WithSampleHook(f func(cm float64)) Option {
	return func(l *Loop) { l.onSample = f }
}

// New builds a loop. Broadcasts go to n.
func New(r ranger.Ranger, rec *lap.Recorder, n lap.Notifier, iv Intervals, opts ...Option) *Loop {
	if n == nil {
		n = lap.Discard
	}
	l := &Loop{
		ranger:   r,
		rec:      rec,
		notifier: n,
		iv:       iv,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Do runs fn between ticks.
func (l *Loop) Do(fn func()) {
	l.turn.Lock()
	defer l.turn.Unlock()
	fn()
}

// Tick runs one pass of the loop body without the trailing delay.
func (l *Loop) Tick() {
	l.turn.Lock()
	defer l.turn.Unlock()

	// 1. Measure; bounded by the ranger timeout.
	cm := l.ranger.Measure()
	if l.onSample != nil {
		l.onSample(cm)
	}

	// 2. Distance log.
	now := l.now()
	if now.Sub(l.lastDistLog) >= l.iv.DistanceLog {
		l.log.Debugf("dist: %.1f cm", cm)
		l.lastDistLog = now
	}

	// 3. Gate logic; the recorder ignores samples while disarmed.
	l.rec.Step(cm, now)

	// 4. Periodic broadcast.
	if l.now().Sub(l.lastSent) >= l.iv.Telemetry {
		laps := l.rec.Snapshot()
		l.notifier.Notify(laps.String())
		l.lastSent = l.now()

		l.log.Infof("laps: %.2f  %.2f  %.2f  %.2f", laps[0], laps[1], laps[2], laps[3])
	}
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(l.iv.TickDelay)
	defer timer.Stop()

	for {
		l.Tick()

		timer.Reset(l.iv.TickDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

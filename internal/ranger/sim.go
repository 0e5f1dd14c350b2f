// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ranger

import (
	"sync"
	"time"
)

// Simulated pretends a car passes the gate once per lap period.
type Simulated struct {
	start   time.Time
	period  time.Duration
	dwell   time.Duration
	nearCM  float64
	emptyCM float64
	now     func() time.Time
}

// NewSimulated returns a ranger that reports nearCM for dwell at the start of
// every period and an empty track otherwise.
func NewSimulated(period, dwell time.Duration) *Simulated {
	return &Simulated{
		start:   time.Now(),
		period:  period,
		dwell:   dwell,
		nearCM:  40,
		emptyCM: 250,
		now:     time.Now,
	}
}

func (s *Simulated) Measure() float64 {
	if s.period <= 0 {
		return NoEcho
	}
	phase := s.now().Sub(s.start) % s.period
	if phase < s.dwell {
		return s.nearCM
	}
	return s.emptyCM
}

// Scripted replays fixed samples, then reports NoEcho forever.
type Scripted struct {
	mu      sync.Mutex
	samples []float64
}

// NewScripted returns a ranger that replays samples in order.
func NewScripted(samples ...float64) *Scripted {
	return &Scripted{samples: samples}
}

func (s *Scripted) Measure() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return NoEcho
	}
	v := s.samples[0]
	s.samples = s.samples[1:]
	return v
}

// Remaining reports how many samples are left.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

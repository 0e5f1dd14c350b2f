// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ranger measures the distance to whatever is in front of the gate.
package ranger

import "time"

// NoEcho is returned when no echo arrives before the timeout. It sits far
// above any gate threshold, so it reads as "nothing there".
const NoEcho = 10000.0

// SoundSpeed is in centimetres per microsecond at room temperature.
const SoundSpeed = 0.034

// Ranger returns one distance sample in centimetres, or NoEcho.
// Measure must return within its own timeout.
type Ranger interface {
	Measure() float64
}

// Func adapts a function to Ranger.
type Func func() float64

func (f Func) Measure() float64 { return f() }

// PulseToCentimeters converts an echo pulse width (round trip) to distance.
func PulseToCentimeters(pulse time.Duration) float64 {
	us := float64(pulse) / float64(time.Microsecond)
	return us * SoundSpeed / 2
}

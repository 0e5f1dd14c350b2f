// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lap

// Edge is a gate transition reported by the Detector.
type Edge int

const (
	Entered Edge = iota + 1
	Exited
)

func (e Edge) String() string {
	switch e {
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	default:
		return "none"
	}
}

// Thresholds is the hysteresis band in centimetres. Enter must be below Exit.
type Thresholds struct {
	Enter float64
	Exit  float64
}

// DefaultThresholds is the 100/120 cm band of the track gate.
var DefaultThresholds = Thresholds{Enter: 100, Exit: 120}

// Detector turns distance samples into Entered/Exited edges.
type Detector struct {
	th     Thresholds
	inside bool
}

// NewDetector returns a detector that starts outside the gate.
func NewDetector(th Thresholds) *Detector {
	return &Detector{th: th}
}

// Update feeds one sample. ok is false when the sample causes no transition,
// which includes every sample inside the band between Enter and Exit.
func (d *Detector) Update(cm float64) (edge Edge, ok bool) {
	switch {
	case !d.inside && cm < d.th.Enter:
		d.inside = true
		return Entered, true
	case d.inside && cm > d.th.Exit:
		d.inside = false
		return Exited, true
	}
	return 0, false
}

// Inside reports the debounced presence flag.
func (d *Detector) Inside() bool { return d.inside }

// Clear forgets any object currently in the gate.
func (d *Detector) Clear() { d.inside = false }

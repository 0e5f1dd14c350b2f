// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package lap holds the gate-crossing detector and the lap recorder state
// machine of the lap timer.
package lap

import (
	"fmt"
	"strings"
)

// NumLaps is the capacity of a LapSet.
const NumLaps = 4

// Telemetry literals sent to connected peers.
const (
	MsgStart = "start"
	MsgEnd   = "end"
	MsgPong  = "pong"
)

// LapSet holds lap durations in seconds. Unused slots are zero.
type LapSet [NumLaps]float64

// String renders the set as the telemetry payload, e.g. "0.00,0.00,0.00,0.00".
func (s LapSet) String() string {
	parts := make([]string, NumLaps)
	for i, v := range s {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return strings.Join(parts, ",")
}

// Mode selects what happens once the LapSet is full.
type Mode int

const (
	// Normal stops recording after NumLaps laps.
	Normal Mode = iota
	// Rolling keeps the most recent NumLaps laps, dropping the oldest.
	Rolling
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Rolling:
		return "rolling"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText lets Mode appear as a word in JSON state dumps.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Notifier delivers a text notification to whoever is listening.
// Implementations must not block indefinitely and drop the message
// when no peer is connected.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(msg string) {
	for _, n := range m {
		if n != nil {
			n.Notify(msg)
		}
	}
}

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(string) {})

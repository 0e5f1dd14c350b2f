// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package command maps inbound text commands onto the lap recorder.
package command

import (
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/lap_timer/internal/lap"
)

// Inbound command words.
const (
	Reset = "reset"
	Test  = "test"
	Stop  = "stop"
	Ping  = "ping"
)

// Recorder is the part of lap.Recorder the interpreter drives.
type Recorder interface {
	Reset(mode lap.Mode)
	Stop()
}

// Counter is told about every recognised command.
type Counter interface {
	CommandHandled(name string)
}

// Serializer runs fn exclusively with respect to the gate loop.
// *scheduler.Loop satisfies it.
type Serializer interface {
	Do(fn func())
}

// Interpreter is stateless; it can be shared by every transport.
type Interpreter struct {
	rec     Recorder
	reply   lap.Notifier
	counter Counter
	turn    Serializer
}

// New returns an Interpreter that replies through n.
func New(rec Recorder, n lap.Notifier) *Interpreter {
	if n == nil {
		n = lap.Discard
	}
	return &Interpreter{rec: rec, reply: n}
}

// WithCounter attaches a command counter and returns the interpreter.
func (i *Interpreter) WithCounter(c Counter) *Interpreter {
	i.counter = c
	return i
}

// WithSerializer makes every command, replies included, wait for the
// running tick to finish.
func (i *Interpreter) WithSerializer(s Serializer) *Interpreter {
	i.turn = s
	return i
}

// Handle applies one command. Unknown text is ignored and changes nothing.
// It reports whether the command was recognised.
func (i *Interpreter) Handle(cmd string) bool {
	if i.turn == nil {
		return i.handle(cmd)
	}
	var ok bool
	i.turn.Do(func() { ok = i.handle(cmd) })
	return ok
}

func (i *Interpreter) handle(cmd string) bool {
	switch cmd {
	case Reset:
		// Reset sends the zeroed snapshot itself.
		i.rec.Reset(lap.Normal)
	case Test:
		i.rec.Reset(lap.Rolling)
	case Stop:
		i.rec.Stop()
	case Ping:
		i.reply.Notify(lap.MsgPong)
	default:
		logrus.WithField("command", cmd).Debug("ignoring unknown command")
		return false
	}
	if i.counter != nil {
		i.counter.CommandHandled(cmd)
	}
	return true
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"
)

// Connection notices printed by HM-10 style BLE/UART bridges.
const (
	noticeConnected    = "OK+CONN"
	noticeDisconnected = "OK+LOST"
)

// Serial talks to a radio bridge module over a UART, one message per line.
type Serial struct {
	port      io.ReadWriteCloser
	handle    CommandFunc
	writeMu   sync.Mutex
	connected atomic.Bool
}

// OpenSerial opens the UART at 8N1.
func OpenSerial(portName string, baud int, handle CommandFunc) (*Serial, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("uart open %s: %w", portName, err)
	}
	logrus.Infof("uart: %s opened at %d baud", portName, baud)
	return NewSerial(port, handle), nil
}

// NewSerial wraps an already open port. The peer counts as connected until
// the bridge reports otherwise.
func NewSerial(port io.ReadWriteCloser, handle CommandFunc) *Serial {
	s := &Serial{port: port, handle: handle}
	s.connected.Store(true)
	return s
}

// Connected reports the last connection notice from the bridge.
func (s *Serial) Connected() bool { return s.connected.Load() }

// Notify writes msg as one line, or drops it while no peer is connected.
func (s *Serial) Notify(msg string) {
	if !s.connected.Load() {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := io.WriteString(s.port, msg+"\n"); err != nil {
		logrus.WithError(err).Warn("uart: write")
	}
}

// Listen reads lines until the port fails or is closed.
func (s *Serial) Listen() error {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch line {
		case "":
			continue
		case noticeConnected:
			s.connected.Store(true)
			logrus.Info("uart: peer connected")
		case noticeDisconnected:
			s.connected.Store(false)
			logrus.Info("uart: peer disconnected")
		default:
			if s.handle != nil {
				s.handle(line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("uart read: %w", err)
	}
	return io.EOF
}

// Close closes the port, which also ends Listen.
func (s *Serial) Close() error {
	return s.port.Close()
}

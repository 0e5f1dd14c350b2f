// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ranger

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// HCSR04 drives an HC-SR04 ultrasonic module on two GPIO pins.
//
// Datasheet: https://cdn.sparkfun.com/datasheets/Sensors/Proximity/HCSR04.pdf
type HCSR04 struct {
	trigger gpio.PinIO
	echo    gpio.PinIO
	timeout time.Duration
	now     func() time.Time
}

// OpenHCSR04 initializes the periph host and looks up both pins by name
// (for a Raspberry Pi, the BCM number as a string).
func OpenHCSR04(triggerPin, echoPin string, timeout time.Duration) (*HCSR04, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ranger: periph host init: %w", err)
	}
	return lookupHCSR04(triggerPin, echoPin, timeout)
}

func lookupHCSR04(triggerPin, echoPin string, timeout time.Duration) (*HCSR04, error) {
	trig := gpioreg.ByName(triggerPin)
	if trig == nil {
		return nil, fmt.Errorf("ranger: no GPIO trigger pin named %q", triggerPin)
	}
	echo := gpioreg.ByName(echoPin)
	if echo == nil {
		return nil, fmt.Errorf("ranger: no GPIO echo pin named %q", echoPin)
	}
	return NewHCSR04(trig, echo, timeout)
}

// NewHCSR04 wraps already-resolved pins. The trigger is driven low.
func NewHCSR04(trigger, echo gpio.PinIO, timeout time.Duration) (*HCSR04, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("ranger: timeout must be positive, got %s", timeout)
	}
	if err := trigger.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("ranger: trigger pin %s: %w", trigger, err)
	}
	return &HCSR04{
		trigger: trigger,
		echo:    echo,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Measure fires one ping and times the echo pulse. The whole wait, rising
// and falling edge together, is bounded by the timeout.
func (s *HCSR04) Measure() float64 {
	// Rising edge only: a falling edge left over from a timed-out pulse
	// must not start the clock.
	if err := s.echo.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		logrus.WithError(err).Warn("ranger: echo pin setup")
		return NoEcho
	}
	if err := s.ping(); err != nil {
		logrus.WithError(err).Warn("ranger: trigger pulse")
		return NoEcho
	}

	start := s.now()
	if !s.echo.WaitForEdge(s.timeout) {
		return NoEcho
	}
	rise := s.now()

	if err := s.echo.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		logrus.WithError(err).Warn("ranger: echo pin setup")
		return NoEcho
	}
	remaining := s.timeout - rise.Sub(start)
	if remaining <= 0 || !s.echo.WaitForEdge(remaining) {
		return NoEcho
	}
	return PulseToCentimeters(s.now().Sub(rise))
}

// ping sends the 10µs trigger pulse.
func (s *HCSR04) ping() error {
	if err := s.trigger.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(2 * time.Microsecond)
	if err := s.trigger.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(10 * time.Microsecond)
	return s.trigger.Out(gpio.Low)
}

// Halt releases both pins.
func (s *HCSR04) Halt() error {
	if err := s.trigger.Halt(); err != nil {
		return err
	}
	return s.echo.Halt()
}

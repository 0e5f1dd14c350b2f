// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/lap_timer/internal/command"
	"github.com/relabs-tech/lap_timer/internal/config"
	"github.com/relabs-tech/lap_timer/internal/display"
	"github.com/relabs-tech/lap_timer/internal/lap"
	"github.com/relabs-tech/lap_timer/internal/link"
	"github.com/relabs-tech/lap_timer/internal/metrics"
	"github.com/relabs-tech/lap_timer/internal/ranger"
	"github.com/relabs-tech/lap_timer/internal/scheduler"
)

// dispatcher forwards link commands to the interpreter once it exists.
// Commands that arrive while the gate is still booting are dropped.
type dispatcher struct {
	in atomic.Pointer[command.Interpreter]
}

func (d *dispatcher) Handle(cmd string) {
	if in := d.in.Load(); in != nil {
		in.Handle(cmd)
	}
}

// ConfigureLogging applies LOG_LEVEL to the standard logrus logger.
func ConfigureLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// OpenRanger returns the HC-SR04 on the configured pins, or a simulated car
// when RANGER_MOCK is set.
func OpenRanger(cfg *config.Config) (ranger.Ranger, error) {
	if cfg.RangerMock {
		logrus.Info("using simulated ranger")
		return ranger.NewSimulated(8*time.Second, 300*time.Millisecond), nil
	}
	r, err := ranger.OpenHCSR04(cfg.RangerTriggerPin, cfg.RangerEchoPin, cfg.RangerTimeout())
	if err != nil {
		return nil, err
	}
	logrus.Infof("ranger: HC-SR04 trigger=%s echo=%s timeout=%s",
		cfg.RangerTriggerPin, cfg.RangerEchoPin, cfg.RangerTimeout())
	return r, nil
}

// RunLapTimer brings up every configured link and runs the gate loop until
// ctx is cancelled.
func RunLapTimer(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	m := metrics.New()
	d := &dispatcher{}

	rng, err := OpenRanger(cfg)
	if err != nil {
		return err
	}

	// --- links ---
	var links lap.Multi

	mq, client, err := link.DialMQTT(link.MQTTOptions{
		Broker:         cfg.MQTTBroker,
		ClientID:       cfg.MQTTClientID,
		TelemetryTopic: cfg.TopicTelemetry,
		CommandTopic:   cfg.TopicCommand,
	}, d.Handle)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	links = append(links, mq)

	if cfg.UARTSerialPort != "" {
		uart, err := link.OpenSerial(cfg.UARTSerialPort, cfg.UARTBaudRate, d.Handle)
		if err != nil {
			return err
		}
		defer uart.Close()
		go func() {
			if err := uart.Listen(); err != nil {
				logrus.WithError(err).Warn("uart: listener stopped")
			}
		}()
		links = append(links, uart)
	}

	var hub *link.Hub
	if cfg.WebServerPort > 0 {
		hub = link.NewHub(d.Handle)
		links = append(links, hub)
	}

	var board *display.Board
	if cfg.DisplayEnabled {
		b, bus, err := display.OpenSSD1306(cfg.DisplayI2CBus)
		if err != nil {
			// The lap board is optional; keep timing without it.
			logrus.WithError(err).Warn("display: disabled")
		} else {
			defer bus.Close()
			board = b
			links = append(links, board)
		}
	}

	// --- core ---
	notifier := m.CountNotifications(links)
	th := lap.Thresholds{Enter: cfg.ThresholdEnterCM, Exit: cfg.ThresholdExitCM}
	rec := lap.NewRecorder(notifier, th, lap.WithObserver(m))
	loop := scheduler.New(rng, rec, notifier, scheduler.Intervals{
		TickDelay:   cfg.TickDelay(),
		DistanceLog: cfg.DistanceLogInterval(),
		Telemetry:   cfg.TelemetryInterval(),
	}, scheduler.WithSampleHook(m.ObserveDistance))
	in := command.New(rec, notifier).WithCounter(m).WithSerializer(loop)
	d.in.Store(in)
	if board != nil {
		board.Follow(rec)
	}

	if hub != nil {
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
			Handler: link.NewRouter(rec, in, hub, m.Handler()),
		}
		go func() {
			logrus.Infof("web server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("web server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logrus.Infof("lap timer ready (waiting for '%s'), thresholds enter=%.0fcm exit=%.0fcm",
		command.Reset, th.Enter, th.Exit)

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logrus.Info("lap timer: shutting down")
	return nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/lap_timer/internal/app"
	"github.com/relabs-tech/lap_timer/internal/config"
)

func main() {
	configPath := flag.String("config", "lap_timer_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if err := app.ConfigureLogging(config.Get().LogLevel); err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("starting lap timer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunLapTimer(ctx); err != nil {
		logrus.Fatalf("fatal: %v", err)
	}
}

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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/lap_timer/internal/app"
	"github.com/relabs-tech/lap_timer/internal/config"
)

func main() {
	configPath := flag.String("config", "lap_timer_config.txt", "path to configuration file")
	interval := flag.Duration("interval", 100*time.Millisecond, "time between samples")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Infof("probing ranger every %s (Ctrl+C to stop)", *interval)
	if err := app.RunRangerProbe(ctx, os.Stdout, *interval); err != nil {
		logrus.Fatalf("fatal: %v", err)
	}
}

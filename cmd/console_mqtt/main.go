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

	logrus.Info("starting lap timer console (MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx, os.Stdin, os.Stdout); err != nil {
		logrus.Fatalf("fatal: %v", err)
	}
}

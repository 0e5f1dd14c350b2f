package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/lap_timer/internal/config"
	"github.com/relabs-tech/lap_timer/internal/lap"
)

// formatTelemetry renders one gate message for the terminal.
func formatTelemetry(msg string) string {
	switch msg {
	case lap.MsgStart:
		return "[GATE] first crossing, clock started"
	case lap.MsgEnd:
		return fmt.Sprintf("[GATE] %d laps done, gate disarmed", lap.NumLaps)
	case lap.MsgPong:
		return "[GATE] pong"
	}
	parts := strings.Split(msg, ",")
	if len(parts) != lap.NumLaps {
		return fmt.Sprintf("[????] %q", msg)
	}
	var b strings.Builder
	b.WriteString("[LAPS]")
	for i, p := range parts {
		fmt.Fprintf(&b, "  L%d=%6ss", i+1, p)
	}
	return b.String()
}

// RunConsoleMQTT prints gate telemetry and publishes every line read from
// in as a command, until ctx is cancelled or in is exhausted.
func RunConsoleMQTT(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	logrus.Infof("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fmt.Fprintln(out, formatTelemetry(string(msg.Payload())))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logrus.Infof("console: subscribed to %s", cfg.TopicTelemetry)
	fmt.Fprintln(out, "commands: reset | test | stop | ping")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("console: shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if t := client.Publish(cfg.TopicCommand, 0, false, line); t.Wait() && t.Error() != nil {
				logrus.WithError(t.Error()).Warn("console: publish command")
			}
		}
	}
}

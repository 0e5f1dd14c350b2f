// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDConsole string

	// Topics
	TopicTelemetry string
	TopicCommand   string

	// Ranger hardware (HC-SR04)
	RangerTriggerPin string
	RangerEchoPin    string
	RangerTimeoutMS  int  // echo wait; 30ms is roughly 5m
	RangerMock       bool // simulated car instead of GPIO

	// Gate hysteresis, enter must be below exit
	ThresholdEnterCM float64
	ThresholdExitCM  float64

	// Timing (milliseconds)
	TickDelayMS           int
	DistanceLogIntervalMS int
	TelemetryIntervalMS   int

	// Web Server (0 disables the web link)
	WebServerPort int

	// UART radio bridge ("" disables the serial link)
	UARTSerialPort string
	UARTBaudRate   int

	// Display
	DisplayEnabled bool
	DisplayI2CBus  string // "" picks the first bus

	LogLevel string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the gate's factory values.
// MQTT_BROKER has no default and must come from the file.
func Default() *Config {
	return &Config{
		MQTTClientID:          "lap-timer",
		MQTTClientIDConsole:   "lap-timer-console",
		TopicTelemetry:        "laptimer/telemetry",
		TopicCommand:          "laptimer/command",
		RangerTriggerPin:      "4",
		RangerEchoPin:         "16",
		RangerTimeoutMS:       30,
		ThresholdEnterCM:      100,
		ThresholdExitCM:       120,
		TickDelayMS:           10,
		DistanceLogIntervalMS: 100,
		TelemetryIntervalMS:   500,
		UARTBaudRate:          9600,
		LogLevel:              "info",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value

	// Ranger
	case "RANGER_TRIGGER_PIN":
		c.RangerTriggerPin = value
	case "RANGER_ECHO_PIN":
		c.RangerEchoPin = value
	case "RANGER_TIMEOUT_MS":
		val, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.RangerTimeoutMS = val
	case "RANGER_MOCK":
		val, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RANGER_MOCK %q: %w", value, err)
		}
		c.RangerMock = val

	// Gate
	case "THRESHOLD_ENTER_CM":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THRESHOLD_ENTER_CM %q: %w", value, err)
		}
		c.ThresholdEnterCM = val
	case "THRESHOLD_EXIT_CM":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THRESHOLD_EXIT_CM %q: %w", value, err)
		}
		c.ThresholdExitCM = val

	// Timing
	case "TICK_DELAY_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TICK_DELAY_MS %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("TICK_DELAY_MS must be >= 0, got %d", val)
		}
		c.TickDelayMS = val
	case "DISTANCE_LOG_INTERVAL_MS":
		val, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.DistanceLogIntervalMS = val
	case "TELEMETRY_INTERVAL_MS":
		val, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.TelemetryIntervalMS = val

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", port)
		}
		c.WebServerPort = port

	// UART
	case "UART_SERIAL_PORT":
		c.UARTSerialPort = value
	case "UART_BAUD_RATE":
		rate, err := parsePositive(key, value)
		if err != nil {
			return err
		}
		c.UARTBaudRate = rate

	// Display
	case "DISPLAY_ENABLED":
		val, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
		c.DisplayEnabled = val
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parsePositive(key, value string) (int, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, val)
	}
	return val, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicTelemetry == "" || c.TopicCommand == "" {
		return fmt.Errorf("TOPIC_TELEMETRY and TOPIC_COMMAND are required")
	}
	if !c.RangerMock && (c.RangerTriggerPin == "" || c.RangerEchoPin == "") {
		return fmt.Errorf("RANGER_TRIGGER_PIN and RANGER_ECHO_PIN are required")
	}
	if c.ThresholdEnterCM <= 0 {
		return fmt.Errorf("THRESHOLD_ENTER_CM must be > 0, got %.1f", c.ThresholdEnterCM)
	}
	if c.ThresholdEnterCM >= c.ThresholdExitCM {
		return fmt.Errorf("THRESHOLD_ENTER_CM (%.1f) must be below THRESHOLD_EXIT_CM (%.1f)",
			c.ThresholdEnterCM, c.ThresholdExitCM)
	}
	return nil
}

// RangerTimeout returns the echo wait as a duration.
func (c *Config) RangerTimeout() time.Duration {
	return time.Duration(c.RangerTimeoutMS) * time.Millisecond
}

// TickDelay returns the per-tick yield.
func (c *Config) TickDelay() time.Duration {
	return time.Duration(c.TickDelayMS) * time.Millisecond
}

// DistanceLogInterval returns the minimum gap between distance log lines.
func (c *Config) DistanceLogInterval() time.Duration {
	return time.Duration(c.DistanceLogIntervalMS) * time.Millisecond
}

// TelemetryInterval returns the minimum gap between periodic snapshot broadcasts.
func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.TelemetryIntervalMS) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so later calls return the first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

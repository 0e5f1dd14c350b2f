// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link carries telemetry out of the gate and commands into it.
// Every link is a lap.Notifier and hands inbound text to a CommandFunc.
package link

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// CommandFunc receives one inbound command string.
type CommandFunc func(cmd string)

// PublishTimeout bounds how long a notification may hold up the caller.
const PublishTimeout = 200 * time.Millisecond

// MQTTOptions configures the broker link.
type MQTTOptions struct {
	Broker         string
	ClientID       string
	TelemetryTopic string
	CommandTopic   string
}

type publisher interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes telemetry to one topic and takes commands from another.
type MQTT struct {
	client  publisher
	topic   string
	handle  CommandFunc
	timeout time.Duration
}

// DialMQTT connects to the broker. The command subscription is renewed on
// every (re)connect so a dropped link picks up commands again by itself.
func DialMQTT(o MQTTOptions, handle CommandFunc) (*MQTT, mqtt.Client, error) {
	l := &MQTT{topic: o.TelemetryTopic, handle: handle, timeout: PublishTimeout}

	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			logrus.WithField("broker", o.Broker).Info("mqtt: connected")
			if token := c.Subscribe(o.CommandTopic, 0, l.onMessage); token.Wait() && token.Error() != nil {
				logrus.WithError(token.Error()).Errorf("mqtt: subscribe %s", o.CommandTopic)
				return
			}
			logrus.Infof("mqtt: subscribed to %s", o.CommandTopic)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logrus.WithError(err).Warn("mqtt: connection lost, reconnecting")
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("mqtt connect %s: %w", o.Broker, token.Error())
	}
	l.client = client
	return l, client, nil
}

func (l *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if l.handle != nil {
		l.handle(string(msg.Payload()))
	}
}

// Notify publishes msg. It is dropped while the broker is unreachable and
// never waits longer than the publish timeout.
func (l *MQTT) Notify(msg string) {
	if !l.client.IsConnectionOpen() {
		return
	}
	token := l.client.Publish(l.topic, 0, false, msg)
	if !token.WaitTimeout(l.timeout) {
		logrus.Warnf("mqtt: publish to %s timed out", l.topic)
		return
	}
	if err := token.Error(); err != nil {
		logrus.WithError(err).Warnf("mqtt: publish to %s", l.topic)
	}
}

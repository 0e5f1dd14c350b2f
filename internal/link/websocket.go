// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins on the track network
	},
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Hub fans telemetry out to every connected browser and takes text frames
// from them as commands.
type Hub struct {
	mu           sync.Mutex
	clients      map[*wsClient]struct{}
	handle       CommandFunc
	writeTimeout time.Duration
}

// NewHub returns an empty hub.
func NewHub(handle CommandFunc) *Hub {
	return &Hub{
		clients:      make(map[*wsClient]struct{}),
		handle:       handle,
		writeTimeout: PublishTimeout,
	}
}

// ServeHTTP upgrades the request and reads commands until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("ws: upgrade")
		return
	}
	c := &wsClient{conn: conn}
	h.add(c)
	logrus.WithField("remote", r.RemoteAddr).Info("ws: peer connected")

	defer func() {
		h.remove(c)
		conn.Close()
		logrus.WithField("remote", r.RemoteAddr).Info("ws: peer disconnected")
	}()

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage && h.handle != nil {
			h.handle(string(payload))
		}
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Clients returns the number of connected peers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify sends msg to every peer. A peer that cannot take it within the
// write timeout is dropped.
func (h *Hub) Notify(msg string) {
	h.mu.Lock()
	peers := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		peers = append(peers, c)
	}
	h.mu.Unlock()

	for _, c := range peers {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
		c.writeMu.Unlock()
		if err != nil {
			logrus.WithError(err).Warn("ws: write, dropping peer")
			h.remove(c)
			c.conn.Close()
		}
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/lap_timer/internal/lap"
)

// StateReader exposes the recorder state to HTTP clients.
type StateReader interface {
	State() lap.State
}

// Interpreter applies a command and reports whether it was recognised.
type Interpreter interface {
	Handle(cmd string) bool
}

// NewRouter wires the web link:
//
//	GET  /api/laps            recorder state as JSON
//	POST /api/command/{name}  reset, test, stop or ping
//	GET  /ws                  live telemetry, text frames in as commands
//	GET  /metrics             Prometheus, when metrics is non-nil
func NewRouter(state StateReader, in Interpreter, hub *Hub, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/laps", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state.State()); err != nil {
			logrus.WithError(err).Warn("web: json encode")
		}
	})

	r.Post("/api/command/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !in.Handle(name) {
			http.Error(w, "unknown command", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	r.Handle("/ws", hub)

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

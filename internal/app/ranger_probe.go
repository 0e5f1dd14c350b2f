// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/lap_timer/internal/config"
	"github.com/relabs-tech/lap_timer/internal/lap"
	"github.com/relabs-tech/lap_timer/internal/ranger"
)

// probeLine formats one sample and the gate edge it caused, if any.
func probeLine(cm float64, edge lap.Edge, ok bool) string {
	dist := fmt.Sprintf("%7.1f cm", cm)
	if cm >= ranger.NoEcho {
		dist = "  no echo"
	}
	if !ok {
		return dist
	}
	return fmt.Sprintf("%s  <- %s", dist, edge)
}

// RunRangerProbe prints live distances and gate edges so pins and
// thresholds can be checked on the track without arming the recorder.
func RunRangerProbe(ctx context.Context, out io.Writer, interval time.Duration) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	rng, err := OpenRanger(cfg)
	if err != nil {
		return err
	}
	det := lap.NewDetector(lap.Thresholds{Enter: cfg.ThresholdEnterCM, Exit: cfg.ThresholdExitCM})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cm := rng.Measure()
			edge, ok := det.Update(cm)
			fmt.Fprintln(out, probeLine(cm, edge, ok))
		}
	}
}

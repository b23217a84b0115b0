// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/imu_stream/internal/orientation"
)

// RunMockConsole prints attitudes from src without a broker.
func RunMockConsole(ctx context.Context, src orientation.Source, interval time.Duration, eps float64, out io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			q, err := src.Next()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatAttitude(orientation.ComputeAttitude(t, q, eps)))
		}
	}
}

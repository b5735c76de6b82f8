/*
 * Copyright 2025 The FrameHub Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hub

import (
	"context"
	"time"

	"github.com/framehub/framehub/pkg/metrics"
	"github.com/framehub/framehub/pkg/models"
)

// runSweep drives the liveness state machine. Connectivity moves only here
// and in markOnline; nothing else writes it.
func (s *Server) runSweep(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.config.SweepInterval)
	ticker := s.clock.Ticker(interval)

	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", interval).
		Dur("offline_timeout", time.Duration(s.config.OfflineTimeout)).
		Msg("Starting liveness sweep")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		case <-s.sweepNudge:
		}

		s.sweep(ctx)
	}
}

// sweep marks online devices offline once their last report ages past the
// timeout, and drops observed records for devices no longer registered.
func (s *Server) sweep(ctx context.Context) {
	registered := make(map[string]struct{})
	for _, device := range s.registry.ListDevices(ctx) {
		registered[device.DeviceID] = struct{}{}
	}

	now := s.clock.Now().UTC()
	threshold := now.Add(-time.Duration(s.config.OfflineTimeout))

	type transition struct {
		deviceID string
		lastSeen time.Time
	}

	var wentOffline []transition

	var pruned []string

	s.mu.Lock()

	for deviceID, status := range s.statuses {
		if _, ok := registered[deviceID]; !ok {
			if status.Connectivity == models.ConnectivityOnline {
				metrics.DevicesOnline.Dec()
			}

			delete(s.statuses, deviceID)
			pruned = append(pruned, deviceID)

			continue
		}

		if status.Connectivity == models.ConnectivityOnline && status.LastSeen.Before(threshold) {
			status.Connectivity = models.ConnectivityOffline
			wentOffline = append(wentOffline, transition{deviceID: deviceID, lastSeen: status.LastSeen})
		}
	}

	s.mu.Unlock()

	for _, deviceID := range pruned {
		s.logger.Debug().Str("device_id", deviceID).Msg("Dropped observed state for deconfigured device")
	}

	for _, tr := range wentOffline {
		s.markDirty(tr.deviceID)
		metrics.DevicesOnline.Dec()
		metrics.ConnectivityTransitionsTotal.WithLabelValues(string(models.ConnectivityOffline)).Inc()

		s.logger.Info().
			Str("device_id", tr.deviceID).
			Time("last_seen", tr.lastSeen).
			Msg("Device went offline")

		s.bus.Publish(models.DeviceEvent{
			Kind:     models.EventConnectivityChanged,
			DeviceID: tr.deviceID,
			Previous: models.ConnectivityOnline,
			Current:  models.ConnectivityOffline,
			At:       now,
		})
	}
}

// markOnline pulls a device online after an accepted status report.
// Online-to-online is a no-op; no duplicate events.
func (s *Server) markOnline(deviceID string) {
	now := s.clock.Now().UTC()

	s.mu.Lock()

	status := s.ensureStatusLocked(deviceID)
	previous := status.Connectivity

	if previous == models.ConnectivityOnline {
		s.mu.Unlock()
		return
	}

	status.Connectivity = models.ConnectivityOnline

	s.mu.Unlock()

	s.markDirty(deviceID)
	metrics.DevicesOnline.Inc()
	metrics.ConnectivityTransitionsTotal.WithLabelValues(string(models.ConnectivityOnline)).Inc()

	s.logger.Info().
		Str("device_id", deviceID).
		Str("previous", string(previous)).
		Msg("Device came online")

	s.bus.Publish(models.DeviceEvent{
		Kind:     models.EventConnectivityChanged,
		DeviceID: deviceID,
		Previous: previous,
		Current:  models.ConnectivityOnline,
		At:       now,
	})
}

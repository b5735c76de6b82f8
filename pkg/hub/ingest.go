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
	"errors"
	"fmt"

	"github.com/framehub/framehub/pkg/metrics"
	"github.com/framehub/framehub/pkg/models"
)

var (
	// ErrUnknownDevice means a status report named a device the registry
	// does not know. Devices register through discovery, never implicitly.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrMalformedPayload means a webhook body could not be used.
	ErrMalformedPayload = errors.New("malformed payload")
)

// ReceiveStatus applies one status report. Reports older than the stored
// observation are dropped silently; transport is fire-and-forget, so a
// duplicate or reordered push is not the device's error. An accepted report
// refreshes the observed state and lets the liveness tracker pull the
// device online.
func (s *Server) ReceiveStatus(ctx context.Context, report *models.StatusReport) error {
	if report == nil || report.DeviceID == "" {
		metrics.StatusReportsTotal.WithLabelValues(metrics.ResultMalformed).Inc()

		return fmt.Errorf("%w: missing device_id", ErrMalformedPayload)
	}

	if _, err := s.registry.GetDevice(ctx, report.DeviceID); err != nil {
		metrics.StatusReportsTotal.WithLabelValues(metrics.ResultUnknownDevice).Inc()

		return fmt.Errorf("%w: %q", ErrUnknownDevice, report.DeviceID)
	}

	receivedAt := s.clock.Now().UTC()

	reportedAt := receivedAt
	if report.Timestamp != nil {
		reportedAt = report.Timestamp.UTC()
	}

	s.mu.Lock()

	status := s.ensureStatusLocked(report.DeviceID)

	if reportedAt.Before(status.LastSeen) {
		stored := status.LastSeen
		s.mu.Unlock()

		metrics.StatusReportsTotal.WithLabelValues(metrics.ResultStale).Inc()

		s.logger.Debug().
			Str("device_id", report.DeviceID).
			Time("reported_at", reportedAt).
			Time("stored_last_seen", stored).
			Msg("Dropped stale status report")

		return nil
	}

	status.CurrentImage = report.CurrentImage
	status.LastReportedProfile = report.Profile
	status.LastSeen = reportedAt
	status.ErrorReported = report.Error

	if report.CurrentImageURL != "" {
		status.CurrentImageURL = report.CurrentImageURL
	}

	if report.IPAddress != "" {
		status.IPAddress = report.IPAddress
	}

	if report.MACAddress != "" {
		status.MACAddress = report.MACAddress
	}

	if report.DisplayWidth > 0 {
		status.DisplayWidth = report.DisplayWidth
	}

	if report.DisplayHeight > 0 {
		status.DisplayHeight = report.DisplayHeight
	}

	if report.AppVersion != "" {
		status.AppVersion = report.AppVersion
	}

	s.mu.Unlock()

	s.markDirty(report.DeviceID)
	metrics.StatusReportsTotal.WithLabelValues(metrics.ResultAccepted).Inc()

	s.bus.Publish(models.DeviceEvent{
		Kind:     models.EventStatusUpdated,
		DeviceID: report.DeviceID,
		At:       receivedAt,
	})

	s.markOnline(report.DeviceID)

	return nil
}

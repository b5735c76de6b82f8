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
	"net"
	"sort"
	"strconv"

	"github.com/framehub/framehub/pkg/models"
)

const defaultDevicePort = 8080

// ErrNotPending means an approval named a device with no pending
// registration.
var ErrNotPending = errors.New("device has no pending registration")

// Registration statuses returned to polling tablets.
const (
	RegistrationConfigured = "configured"
	RegistrationPending    = "pending"
	RegistrationUnknown    = "unknown"
)

// RegistrationRequest is the body a tablet posts to the registration
// webhook, both to announce itself and to poll for approval.
type RegistrationRequest struct {
	Action     string `json:"action,omitempty"`
	DeviceID   string `json:"device_id"`
	DeviceIP   string `json:"device_ip,omitempty"`
	DevicePort int    `json:"device_port,omitempty"`
}

// RegistrationResponse tells the tablet where it stands. Once a device is
// approved, the answer carries its full configuration so the tablet can
// start without waiting for a push.
type RegistrationResponse struct {
	Status  string               `json:"status"`
	Message string               `json:"message,omitempty"`
	Config  *models.TabletConfig `json:"config,omitempty"`
}

// HandleRegistration processes a discovery webhook call. New devices are
// parked as pending until an operator approves them; registration never
// creates a registry device on its own.
func (s *Server) HandleRegistration(ctx context.Context, req *RegistrationRequest) (*RegistrationResponse, error) {
	if req == nil || req.DeviceID == "" {
		return nil, fmt.Errorf("%w: missing device_id", ErrMalformedPayload)
	}

	if req.Action == "poll" {
		return s.answerPoll(ctx, req.DeviceID), nil
	}

	if req.DeviceIP == "" {
		return nil, fmt.Errorf("%w: missing device_ip", ErrMalformedPayload)
	}

	// Already approved devices get their configuration straight back.
	if config, err := s.RenderTabletConfig(ctx, req.DeviceID); err == nil {
		return &RegistrationResponse{Status: RegistrationConfigured, Config: config}, nil
	}

	port := req.DevicePort
	if port == 0 {
		port = defaultDevicePort
	}

	address := net.JoinHostPort(req.DeviceIP, strconv.Itoa(port))
	now := s.clock.Now().UTC()

	s.pendingMu.Lock()

	pending, ok := s.pending[req.DeviceID]
	if ok {
		pending.Address = address
		pending.LastSeen = now
		pending.Reports++
	} else {
		pending = &models.PendingDevice{
			DeviceID:  req.DeviceID,
			Address:   address,
			FirstSeen: now,
			LastSeen:  now,
			Reports:   1,
		}
		s.pending[req.DeviceID] = pending
	}

	snapshot := *pending

	s.pendingMu.Unlock()

	if s.database != nil {
		if err := s.database.UpsertPendingDevice(ctx, &snapshot); err != nil {
			s.logger.Error().Err(err).Str("device_id", req.DeviceID).Msg("Failed to persist pending device")
		}
	}

	if snapshot.Reports == 1 {
		s.logger.Info().
			Str("device_id", req.DeviceID).
			Str("address", address).
			Msg("Device discovered, awaiting approval")
	}

	return &RegistrationResponse{
		Status:  RegistrationPending,
		Message: "waiting for approval",
	}, nil
}

func (s *Server) answerPoll(ctx context.Context, deviceID string) *RegistrationResponse {
	if config, err := s.RenderTabletConfig(ctx, deviceID); err == nil {
		return &RegistrationResponse{Status: RegistrationConfigured, Config: config}
	}

	s.pendingMu.Lock()
	_, pending := s.pending[deviceID]
	s.pendingMu.Unlock()

	if pending {
		return &RegistrationResponse{Status: RegistrationPending}
	}

	return &RegistrationResponse{Status: RegistrationUnknown}
}

// ListPendingDevices returns discovery candidates ordered by device id.
func (s *Server) ListPendingDevices(_ context.Context) []*models.PendingDevice {
	s.pendingMu.Lock()

	pending := make([]*models.PendingDevice, 0, len(s.pending))

	for _, p := range s.pending {
		clone := *p
		pending = append(pending, &clone)
	}

	s.pendingMu.Unlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].DeviceID < pending[j].DeviceID })

	return pending
}

// ApproveDevice turns a pending registration into a registered device with
// the given profile and default display settings. The registry announces
// the new device, which pushes its first configuration.
func (s *Server) ApproveDevice(ctx context.Context, deviceID, profileID string) (*models.Device, error) {
	s.pendingMu.Lock()
	pending, ok := s.pending[deviceID]

	var address string
	if ok {
		address = pending.Address
	}
	s.pendingMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotPending, deviceID)
	}

	device, err := s.registry.UpsertDevice(ctx, deviceID, address, profileID, models.DefaultDisplaySettings())
	if err != nil {
		return nil, err
	}

	s.pendingMu.Lock()
	delete(s.pending, deviceID)
	s.pendingMu.Unlock()

	if s.database != nil {
		if err := s.database.DeletePendingDevice(ctx, deviceID); err != nil {
			s.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to delete pending device")
		}
	}

	s.logger.Info().
		Str("device_id", deviceID).
		Str("profile_id", profileID).
		Msg("Device approved")

	return device, nil
}

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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framehub/framehub/pkg/models"
	"github.com/framehub/framehub/pkg/registry"
)

func TestRegistrationParksNewDeviceAsPending(t *testing.T) {
	h := newTestHub(t)

	resp, err := h.HandleRegistration(context.Background(), &RegistrationRequest{
		DeviceID: "hallway",
		DeviceIP: "192.168.1.40",
	})
	require.NoError(t, err)

	assert.Equal(t, RegistrationPending, resp.Status)
	assert.Equal(t, "waiting for approval", resp.Message)
	assert.Nil(t, resp.Config)

	pending := h.ListPendingDevices(context.Background())
	require.Len(t, pending, 1)
	assert.Equal(t, "hallway", pending[0].DeviceID)
	assert.Equal(t, "192.168.1.40:8080", pending[0].Address)
	assert.Equal(t, 1, pending[0].Reports)
}

func TestRegistrationRepeatedAnnouncements(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	_, err := h.HandleRegistration(ctx, &RegistrationRequest{DeviceID: "hallway", DeviceIP: "192.168.1.40"})
	require.NoError(t, err)

	h.clock.Advance(time.Minute)

	// The device rebooted onto a new address and a custom port.
	_, err = h.HandleRegistration(ctx, &RegistrationRequest{
		DeviceID:   "hallway",
		DeviceIP:   "192.168.1.41",
		DevicePort: 9090,
	})
	require.NoError(t, err)

	pending := h.ListPendingDevices(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, "192.168.1.41:9090", pending[0].Address)
	assert.Equal(t, 2, pending[0].Reports)
	assert.True(t, pending[0].LastSeen.After(pending[0].FirstSeen))
}

func TestRegistrationRejectsMalformedRequests(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	_, err := h.HandleRegistration(ctx, nil)
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = h.HandleRegistration(ctx, &RegistrationRequest{DeviceIP: "192.168.1.40"})
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = h.HandleRegistration(ctx, &RegistrationRequest{DeviceID: "hallway"})
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestRegistrationAnswersConfiguredDeviceDirectly(t *testing.T) {
	h := newTestHub(t)
	seedDevice(t, h, "kitchen", "192.168.1.20:8080", "family")

	resp, err := h.HandleRegistration(context.Background(), &RegistrationRequest{
		DeviceID: "kitchen",
		DeviceIP: "192.168.1.20",
	})
	require.NoError(t, err)

	assert.Equal(t, RegistrationConfigured, resp.Status)
	require.NotNil(t, resp.Config)
	assert.Equal(t, "kitchen", resp.Config.DeviceID)
	assert.Equal(t, "family", resp.Config.Profile.Name)

	// Re-announcing does not park an already registered device.
	assert.Empty(t, h.ListPendingDevices(context.Background()))
}

func TestPollAnswers(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	poll := func(deviceID string) *RegistrationResponse {
		resp, err := h.HandleRegistration(ctx, &RegistrationRequest{Action: "poll", DeviceID: deviceID})
		require.NoError(t, err)

		return resp
	}

	// Never seen.
	assert.Equal(t, RegistrationUnknown, poll("hallway").Status)

	// Announced but not approved.
	_, err := h.HandleRegistration(ctx, &RegistrationRequest{DeviceID: "hallway", DeviceIP: "192.168.1.40"})
	require.NoError(t, err)
	assert.Equal(t, RegistrationPending, poll("hallway").Status)

	// Approved.
	seedProfile(t, h, "family")
	_, err = h.ApproveDevice(ctx, "hallway", "family")
	require.NoError(t, err)

	resp := poll("hallway")
	assert.Equal(t, RegistrationConfigured, resp.Status)
	require.NotNil(t, resp.Config)
	assert.Equal(t, "192.168.1.40:8080", mustGetDevice(t, h, "hallway").Address)
}

func TestApproveDeviceRegistersAndClearsPending(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	_, err := h.HandleRegistration(ctx, &RegistrationRequest{DeviceID: "hallway", DeviceIP: "192.168.1.40"})
	require.NoError(t, err)

	seedProfile(t, h, "family")

	device, err := h.ApproveDevice(ctx, "hallway", "family")
	require.NoError(t, err)

	assert.Equal(t, "hallway", device.DeviceID)
	assert.Equal(t, "192.168.1.40:8080", device.Address)
	assert.Equal(t, "family", device.ProfileID)
	assert.Equal(t, models.DefaultDisplaySettings(), device.Settings)

	assert.Empty(t, h.ListPendingDevices(ctx))
}

func TestApproveDeviceWithoutRegistration(t *testing.T) {
	h := newTestHub(t)
	seedProfile(t, h, "family")

	_, err := h.ApproveDevice(context.Background(), "hallway", "family")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestApproveDeviceBadProfileKeepsPending(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	_, err := h.HandleRegistration(ctx, &RegistrationRequest{DeviceID: "hallway", DeviceIP: "192.168.1.40"})
	require.NoError(t, err)

	_, err = h.ApproveDevice(ctx, "hallway", "missing")
	require.ErrorIs(t, err, registry.ErrInvalidProfileReference)

	// A failed approval leaves the registration waiting for a retry.
	pending := h.ListPendingDevices(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, "hallway", pending[0].DeviceID)
}

func seedProfile(t *testing.T, h *testHub, profileID string) {
	t.Helper()

	_, err := h.Registry().UpsertProfile(context.Background(), &models.Profile{
		ProfileID:    profileID,
		SearchFilter: "people",
	})
	require.NoError(t, err)
}

func mustGetDevice(t *testing.T, h *testHub, deviceID string) *models.Device {
	t.Helper()

	device, err := h.Registry().GetDevice(context.Background(), deviceID)
	require.NoError(t, err)

	return device
}

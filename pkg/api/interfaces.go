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

// Package api pkg/api/interfaces.go
package api

import (
	"context"

	"github.com/framehub/framehub/pkg/hub"
	"github.com/framehub/framehub/pkg/models"
)

// HubService is the coordination surface the API exposes. The hub server
// implements it; tests substitute mocks.
type HubService interface {
	ReceiveStatus(ctx context.Context, report *models.StatusReport) error
	HandleRegistration(ctx context.Context, req *hub.RegistrationRequest) (*hub.RegistrationResponse, error)

	GetDeviceView(ctx context.Context, deviceID string) (*models.DeviceView, error)
	ListDeviceViews(ctx context.Context) []*models.DeviceView

	NextImage(ctx context.Context, deviceID string) error
	RefreshConfig(ctx context.Context, deviceID string) error
	SetProfile(ctx context.Context, deviceID, profileID string) error
	RefreshFleet(ctx context.Context) (*hub.FleetRefreshResult, error)

	ListPendingDevices(ctx context.Context) []*models.PendingDevice
	ApproveDevice(ctx context.Context, deviceID, profileID string) (*models.Device, error)

	SubscribeEvents() (<-chan models.DeviceEvent, func())
}

// RegistryService is the desired-state surface behind the admin routes.
type RegistryService interface {
	UpsertDevice(ctx context.Context, deviceID, address, profileID string, settings models.DisplaySettings) (*models.Device, error)
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error

	UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
	ListProfiles(ctx context.Context) []*models.Profile
	DeleteProfile(ctx context.Context, profileID string) error
}

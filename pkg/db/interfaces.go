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

package db

import (
	"context"

	"github.com/framehub/framehub/pkg/models"
)

// Service is the persistence surface the registry and the hub depend on.
// The in-memory state is authoritative at runtime; this store provides
// durability across restarts.
type Service interface {
	Close() error

	// Profile operations.

	UpsertProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	DeleteProfile(ctx context.Context, profileID string) error

	// Device operations.

	UpsertDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]*models.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error

	// Observed state operations.

	UpsertDeviceStatus(ctx context.Context, status *models.DeviceStatus) error
	UpsertDeviceStatuses(ctx context.Context, statuses []*models.DeviceStatus) error
	GetDeviceStatus(ctx context.Context, deviceID string) (*models.DeviceStatus, error)
	ListDeviceStatuses(ctx context.Context) ([]*models.DeviceStatus, error)
	DeleteDeviceStatus(ctx context.Context, deviceID string) error

	// Discovery operations.

	UpsertPendingDevice(ctx context.Context, pending *models.PendingDevice) error
	ListPendingDevices(ctx context.Context) ([]*models.PendingDevice, error)
	DeletePendingDevice(ctx context.Context, deviceID string) error
}

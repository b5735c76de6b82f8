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

// Package registry owns the desired state of the fleet: devices, their
// assigned profiles, and display settings. All mutations go through it; it
// keeps authoritative in-memory maps and writes through to the store.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/framehub/framehub/pkg/bus"
	"github.com/framehub/framehub/pkg/db"
	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

// Registry is the authoritative desired-state store.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]*models.Device
	profiles map[string]*models.Profile

	db     db.Service
	events bus.Publisher
	logger logger.Logger
}

// New creates a Registry. The bus may be nil (no events published). The
// database may be nil in tests; mutations then live in memory only.
func New(database db.Service, events bus.Publisher, log logger.Logger) *Registry {
	return &Registry{
		devices:  make(map[string]*models.Device),
		profiles: make(map[string]*models.Profile),
		db:       database,
		events:   events,
		logger:   log.WithComponent("registry"),
	}
}

// UpsertDevice creates or replaces a device's desired state. The profile
// reference is validated first. A change to the assigned profile or the
// display settings publishes a config change event for the coordinator.
func (r *Registry) UpsertDevice(ctx context.Context, deviceID, address, profileID string, settings models.DisplaySettings) (*models.Device, error) {
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}

	if profileID == "" {
		return nil, ErrProfileIDRequired
	}

	r.mu.RLock()
	_, profileOK := r.profiles[profileID]
	prev := cloneDevice(r.devices[deviceID])
	r.mu.RUnlock()

	if !profileOK {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProfileReference, profileID)
	}

	now := time.Now().UTC()

	device := &models.Device{
		DeviceID:  deviceID,
		Address:   address,
		ProfileID: profileID,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if prev != nil {
		device.CreatedAt = prev.CreatedAt
	}

	if r.db != nil {
		if err := r.db.UpsertDevice(ctx, device); err != nil {
			return nil, fmt.Errorf("persist device %q: %w", deviceID, err)
		}
	}

	r.mu.Lock()
	r.devices[deviceID] = device
	r.mu.Unlock()

	// A creation is announced without the profile-changed marker so the
	// coordinator pushes the full configuration rather than a bare profile
	// switch.
	profileChanged := prev != nil && prev.ProfileID != profileID
	settingsChanged := prev == nil || prev.Settings != settings

	r.logger.Info().
		Str("device_id", deviceID).
		Str("profile_id", profileID).
		Bool("profile_changed", profileChanged).
		Msg("Device upserted")

	if (profileChanged || settingsChanged) && r.events != nil {
		r.events.Publish(models.DeviceEvent{
			Kind:           models.EventConfigChanged,
			DeviceID:       deviceID,
			ProfileChanged: profileChanged,
			At:             now,
		})
	}

	return cloneDevice(device), nil
}

// AssignProfile switches a device's desired profile. It is the registry
// half of the set_profile command: the caller dispatches to the tablet
// itself, so no config change event is published here.
func (r *Registry) AssignProfile(ctx context.Context, deviceID, profileID string) (*models.Device, error) {
	r.mu.RLock()
	_, profileOK := r.profiles[profileID]
	prev := cloneDevice(r.devices[deviceID])
	r.mu.RUnlock()

	if prev == nil {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, deviceID)
	}

	if !profileOK {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProfileReference, profileID)
	}

	device := cloneDevice(prev)
	device.ProfileID = profileID
	device.UpdatedAt = time.Now().UTC()

	if r.db != nil {
		if err := r.db.UpsertDevice(ctx, device); err != nil {
			return nil, fmt.Errorf("persist device %q: %w", deviceID, err)
		}
	}

	r.mu.Lock()
	r.devices[deviceID] = device
	r.mu.Unlock()

	r.logger.Info().
		Str("device_id", deviceID).
		Str("profile_id", profileID).
		Msg("Profile assigned")

	return cloneDevice(device), nil
}

// GetDevice returns a copy of the desired state for one device.
func (r *Registry) GetDevice(_ context.Context, deviceID string) (*models.Device, error) {
	r.mu.RLock()
	device := cloneDevice(r.devices[deviceID])
	r.mu.RUnlock()

	if device == nil {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, deviceID)
	}

	return device, nil
}

// ListDevices returns all devices ordered by id.
func (r *Registry) ListDevices(_ context.Context) []*models.Device {
	r.mu.RLock()
	devices := make([]*models.Device, 0, len(r.devices))

	for _, d := range r.devices {
		devices = append(devices, cloneDevice(d))
	}
	r.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceID < devices[j].DeviceID })

	return devices
}

// DeleteDevice removes a device and its observed state row.
func (r *Registry) DeleteDevice(ctx context.Context, deviceID string) error {
	r.mu.RLock()
	_, ok := r.devices[deviceID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrDeviceNotFound, deviceID)
	}

	if r.db != nil {
		if err := r.db.DeleteDeviceStatus(ctx, deviceID); err != nil {
			return fmt.Errorf("delete device status %q: %w", deviceID, err)
		}

		if err := r.db.DeleteDevice(ctx, deviceID); err != nil {
			return fmt.Errorf("delete device %q: %w", deviceID, err)
		}
	}

	r.mu.Lock()
	delete(r.devices, deviceID)
	r.mu.Unlock()

	r.logger.Info().Str("device_id", deviceID).Msg("Device deleted")

	return nil
}

// UpsertProfile creates or edits a profile. Devices referencing an edited
// profile get a config change event so their rendered config is re-pushed.
func (r *Registry) UpsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if profile == nil || profile.ProfileID == "" {
		return nil, ErrProfileIDRequired
	}

	now := time.Now().UTC()

	r.mu.RLock()
	prev := r.profiles[profile.ProfileID]
	r.mu.RUnlock()

	stored := &models.Profile{
		ProfileID:    profile.ProfileID,
		SearchFilter: profile.SearchFilter,
		ExcludePaths: append([]string(nil), profile.ExcludePaths...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if prev != nil {
		stored.CreatedAt = prev.CreatedAt
	}

	if r.db != nil {
		if err := r.db.UpsertProfile(ctx, stored); err != nil {
			return nil, fmt.Errorf("persist profile %q: %w", profile.ProfileID, err)
		}
	}

	r.mu.Lock()
	r.profiles[stored.ProfileID] = stored

	var affected []string

	if prev != nil {
		for id, d := range r.devices {
			if d.ProfileID == stored.ProfileID {
				affected = append(affected, id)
			}
		}
	}
	r.mu.Unlock()

	r.logger.Info().
		Str("profile_id", stored.ProfileID).
		Int("devices_affected", len(affected)).
		Msg("Profile upserted")

	if r.events != nil {
		for _, deviceID := range affected {
			r.events.Publish(models.DeviceEvent{
				Kind:     models.EventConfigChanged,
				DeviceID: deviceID,
				At:       now,
			})
		}
	}

	return cloneProfile(stored), nil
}

// GetProfile returns a copy of one profile.
func (r *Registry) GetProfile(_ context.Context, profileID string) (*models.Profile, error) {
	r.mu.RLock()
	profile := cloneProfile(r.profiles[profileID])
	r.mu.RUnlock()

	if profile == nil {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, profileID)
	}

	return profile, nil
}

// ListProfiles returns all profiles ordered by id.
func (r *Registry) ListProfiles(_ context.Context) []*models.Profile {
	r.mu.RLock()
	profiles := make([]*models.Profile, 0, len(r.profiles))

	for _, p := range r.profiles {
		profiles = append(profiles, cloneProfile(p))
	}
	r.mu.RUnlock()

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ProfileID < profiles[j].ProfileID })

	return profiles
}

// DeleteProfile removes a profile unless a device still references it.
func (r *Registry) DeleteProfile(ctx context.Context, profileID string) error {
	r.mu.RLock()
	_, ok := r.profiles[profileID]

	var holder string

	for id, d := range r.devices {
		if d.ProfileID == profileID {
			holder = id
			break
		}
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, profileID)
	}

	if holder != "" {
		return fmt.Errorf("%w: %q assigned to device %q", ErrProfileInUse, profileID, holder)
	}

	if r.db != nil {
		if err := r.db.DeleteProfile(ctx, profileID); err != nil {
			return fmt.Errorf("delete profile %q: %w", profileID, err)
		}
	}

	r.mu.Lock()
	delete(r.profiles, profileID)
	r.mu.Unlock()

	r.logger.Info().Str("profile_id", profileID).Msg("Profile deleted")

	return nil
}

func cloneDevice(src *models.Device) *models.Device {
	if src == nil {
		return nil
	}

	dst := *src

	return &dst
}

func cloneProfile(src *models.Profile) *models.Profile {
	if src == nil {
		return nil
	}

	dst := *src
	dst.ExcludePaths = append([]string(nil), src.ExcludePaths...)

	return &dst
}

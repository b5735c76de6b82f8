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

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/framehub/framehub/pkg/models"
)

var errRegistryDatabaseUnavailable = errors.New("registry database unavailable")

// HydrateFromStore loads profiles and devices from the store into the
// in-memory maps, replacing whatever is there. It returns the number of
// profiles and devices loaded. Profiles load first so device references
// stay valid for callers racing the hydrate.
func (r *Registry) HydrateFromStore(ctx context.Context) (profileCount, deviceCount int, err error) {
	if r.db == nil {
		return 0, 0, errRegistryDatabaseUnavailable
	}

	if err := ctx.Err(); err != nil {
		return 0, 0, fmt.Errorf("hydrate aborted: %w", err)
	}

	profiles, err := r.db.ListProfiles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("hydrate profiles: %w", err)
	}

	devices, err := r.db.ListDevices(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("hydrate devices: %w", err)
	}

	r.replaceAll(profiles, devices)

	r.logger.Info().
		Int("profiles", len(profiles)).
		Int("devices", len(devices)).
		Msg("Registry hydrated from store")

	return len(profiles), len(devices), nil
}

func (r *Registry) replaceAll(profiles []*models.Profile, devices []*models.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = make(map[string]*models.Profile, len(profiles))
	r.devices = make(map[string]*models.Device, len(devices))

	for _, profile := range profiles {
		if profile == nil || profile.ProfileID == "" {
			continue
		}

		r.profiles[profile.ProfileID] = cloneProfile(profile)
	}

	for _, device := range devices {
		if device == nil || device.DeviceID == "" {
			continue
		}

		r.devices[device.DeviceID] = cloneDevice(device)
	}
}

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

	"github.com/framehub/framehub/pkg/dispatch"
	"github.com/framehub/framehub/pkg/models"
)

// runCoordinator consumes coordination events: desired-state changes are
// reconciled by dispatching to the device, and every event is republished
// to the external stream when one is configured.
func (s *Server) runCoordinator(ctx context.Context) {
	defer s.wg.Done()

	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	s.logger.Info().Msg("Coordinator started")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			s.handleEvent(ctx, event)
		}
	}
}

func (s *Server) handleEvent(ctx context.Context, event models.DeviceEvent) {
	switch event.Kind {
	case models.EventConfigChanged:
		s.publishConfigEvent(ctx, event)
		s.reconcile(ctx, event)
	case models.EventStatusUpdated:
		s.publishStatusEvent(ctx, event)
	case models.EventConnectivityChanged:
		s.publishConnectivityEvent(ctx, event)
	}
}

// reconcile pushes desired state to a device after a registry change. Best
// effort: the dispatcher already retried, so a failure here is logged and
// the next successful ingest or a manual refresh is the recovery path.
func (s *Server) reconcile(ctx context.Context, event models.DeviceEvent) {
	var err error

	if event.ProfileChanged {
		device, lookupErr := s.registry.GetDevice(ctx, event.DeviceID)
		if lookupErr != nil {
			s.logger.Debug().
				Str("device_id", event.DeviceID).
				Msg("Skipping reconcile for removed device")

			return
		}

		err = s.dispatcher.Dispatch(ctx, event.DeviceID, dispatch.SetProfile(device.ProfileID))
	} else {
		config, renderErr := s.RenderTabletConfig(ctx, event.DeviceID)
		if renderErr != nil {
			s.logger.Debug().
				Err(renderErr).
				Str("device_id", event.DeviceID).
				Msg("Skipping reconcile, no renderable config")

			return
		}

		err = s.dispatcher.Dispatch(ctx, event.DeviceID, dispatch.RefreshConfig(config))
	}

	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("device_id", event.DeviceID).
			Bool("profile_changed", event.ProfileChanged).
			Msg("Reconcile dispatch failed")
	}
}

func (s *Server) publishStatusEvent(ctx context.Context, event models.DeviceEvent) {
	if s.events == nil {
		return
	}

	snapshot, ok := s.statusSnapshot(event.DeviceID)
	if !ok {
		return
	}

	data := models.DeviceStatusEventData{
		DeviceID:     event.DeviceID,
		CurrentImage: snapshot.CurrentImage,
		Profile:      snapshot.LastReportedProfile,
		LastSeen:     snapshot.LastSeen,
		Timestamp:    event.At,
	}

	if err := s.events.PublishStatusUpdated(ctx, data); err != nil {
		s.logger.Warn().Err(err).Str("device_id", event.DeviceID).Msg("Failed to publish status event")
	}
}

func (s *Server) publishConnectivityEvent(ctx context.Context, event models.DeviceEvent) {
	if s.events == nil {
		return
	}

	snapshot, _ := s.statusSnapshot(event.DeviceID)

	data := models.DeviceConnectivityEventData{
		DeviceID:      event.DeviceID,
		PreviousState: string(event.Previous),
		CurrentState:  string(event.Current),
		LastSeen:      snapshot.LastSeen,
		Timestamp:     event.At,
	}

	if err := s.events.PublishConnectivityChanged(ctx, data); err != nil {
		s.logger.Warn().Err(err).Str("device_id", event.DeviceID).Msg("Failed to publish connectivity event")
	}
}

func (s *Server) publishConfigEvent(ctx context.Context, event models.DeviceEvent) {
	if s.events == nil {
		return
	}

	device, err := s.registry.GetDevice(ctx, event.DeviceID)
	if err != nil {
		return
	}

	data := models.DeviceConfigEventData{
		DeviceID:       event.DeviceID,
		ProfileID:      device.ProfileID,
		ProfileChanged: event.ProfileChanged,
		Timestamp:      event.At,
	}

	if err := s.events.PublishConfigChanged(ctx, data); err != nil {
		s.logger.Warn().Err(err).Str("device_id", event.DeviceID).Msg("Failed to publish config event")
	}
}

// RenderTabletConfig builds the full configuration document pushed to one
// tablet: photo-source credentials, display settings, the active profile,
// and the webhook the tablet reports back to.
func (s *Server) RenderTabletConfig(ctx context.Context, deviceID string) (*models.TabletConfig, error) {
	device, err := s.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	profile, err := s.registry.GetProfile(ctx, device.ProfileID)
	if err != nil {
		return nil, err
	}

	return &models.TabletConfig{
		DeviceID: device.DeviceID,
		Immich:   s.config.Immich,
		Display:  device.Settings,
		Profile: models.TabletProfileConfig{
			Name:         profile.ProfileID,
			SearchFilter: profile.SearchFilter,
			ExcludePaths: append([]string(nil), profile.ExcludePaths...),
		},
		WebhookURL: s.config.StatusWebhookURL(),
	}, nil
}

// NextImage advances the slideshow on one device.
func (s *Server) NextImage(ctx context.Context, deviceID string) error {
	return s.dispatcher.Dispatch(ctx, deviceID, dispatch.NextImage())
}

// RefreshConfig renders and pushes the device's current configuration.
func (s *Server) RefreshConfig(ctx context.Context, deviceID string) error {
	config, err := s.RenderTabletConfig(ctx, deviceID)
	if err != nil {
		return err
	}

	return s.dispatcher.Dispatch(ctx, deviceID, dispatch.RefreshConfig(config))
}

// SetProfile records the new desired profile, then tells the device to
// switch. The observed profile lags until the device's next status report
// confirms it; the dispatch result is surfaced to the caller directly, so
// the change is not re-announced on the event bus.
func (s *Server) SetProfile(ctx context.Context, deviceID, profileID string) error {
	if _, err := s.registry.AssignProfile(ctx, deviceID, profileID); err != nil {
		return err
	}

	return s.dispatcher.Dispatch(ctx, deviceID, dispatch.SetProfile(profileID))
}

// FleetRefreshResult summarizes a fleet-wide configuration push.
type FleetRefreshResult struct {
	Dispatched int      `json:"dispatched"`
	Failed     []string `json:"failed,omitempty"`
}

// RefreshFleet pushes configuration to every registered device, staggered
// so the photo source is not hit by the whole fleet reloading at once. One
// device's failure never stops the rest.
func (s *Server) RefreshFleet(ctx context.Context) (*FleetRefreshResult, error) {
	devices := s.registry.ListDevices(ctx)
	stagger := time.Duration(s.config.FleetStagger)

	result := &FleetRefreshResult{}

	for i, device := range devices {
		if i > 0 && stagger > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(stagger):
			}
		}

		if err := s.RefreshConfig(ctx, device.DeviceID); err != nil {
			result.Failed = append(result.Failed, device.DeviceID)

			continue
		}

		result.Dispatched++
	}

	return result, nil
}

// GetDeviceView pairs desired and observed state for one device. A device
// that has never reported shows an unknown-connectivity observation.
func (s *Server) GetDeviceView(ctx context.Context, deviceID string) (*models.DeviceView, error) {
	device, err := s.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	observed, ok := s.statusSnapshot(deviceID)
	if !ok {
		observed = models.DeviceStatus{
			DeviceID:     deviceID,
			Connectivity: models.ConnectivityUnknown,
		}
	}

	return &models.DeviceView{Desired: *device, Observed: observed}, nil
}

// ListDeviceViews returns the unified view of the whole fleet, ordered by
// device id.
func (s *Server) ListDeviceViews(ctx context.Context) []*models.DeviceView {
	devices := s.registry.ListDevices(ctx)

	views := make([]*models.DeviceView, 0, len(devices))

	for _, device := range devices {
		observed, ok := s.statusSnapshot(device.DeviceID)
		if !ok {
			observed = models.DeviceStatus{
				DeviceID:     device.DeviceID,
				Connectivity: models.ConnectivityUnknown,
			}
		}

		views = append(views, &models.DeviceView{Desired: *device, Observed: observed})
	}

	return views
}

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

package models

// TabletConfig is the configuration document pushed to a tablet's
// /configure endpoint. The immich block is passed through opaquely; the
// tablet owns the photo backend client.
type TabletConfig struct {
	DeviceID   string              `json:"device_id"`
	Immich     ImmichConfig        `json:"immich"`
	Display    DisplaySettings     `json:"display"`
	Profile    TabletProfileConfig `json:"profile"`
	WebhookURL string              `json:"webhook_url"`
}

// ImmichConfig carries the photo backend credentials a tablet needs.
type ImmichConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// TabletProfileConfig is the profile block inside a TabletConfig.
type TabletProfileConfig struct {
	Name         string   `json:"name"`
	SearchFilter string   `json:"search_filter"`
	ExcludePaths []string `json:"exclude_paths"`
}

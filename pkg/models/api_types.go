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

// CORSConfig controls cross-origin access to the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// ErrorResponse is the JSON body returned for failed API requests.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// DeviceUpsertRequest is the body of PUT /api/devices/{id}. A nil Settings
// keeps the defaults on create and the stored settings on update.
type DeviceUpsertRequest struct {
	Address   string           `json:"address"`
	ProfileID string           `json:"profile_id"`
	Settings  *DisplaySettings `json:"settings,omitempty"`
}

// SetProfileRequest is the body of POST /api/devices/{id}/set_profile.
type SetProfileRequest struct {
	Profile string `json:"profile"`
}

// ApproveDeviceRequest is the body of POST
// /api/discovery/pending/{id}/approve.
type ApproveDeviceRequest struct {
	ProfileID string `json:"profile_id"`
}

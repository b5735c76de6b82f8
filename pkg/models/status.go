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

import (
	"time"
)

// Connectivity is the liveness state of a device. It is derived from
// ingest recency only and is never written by the dispatch path.
type Connectivity string

const (
	ConnectivityUnknown Connectivity = "unknown"
	ConnectivityOnline  Connectivity = "online"
	ConnectivityOffline Connectivity = "offline"
)

// DeviceStatus is the observed state for one device, updated on every
// accepted status push and by the liveness sweep. Exactly one exists per
// registered device, created lazily on first contact.
type DeviceStatus struct {
	DeviceID            string       `json:"device_id"`
	CurrentImage        string       `json:"current_image,omitempty"`
	CurrentImageURL     string       `json:"current_image_url,omitempty"`
	LastReportedProfile string       `json:"last_reported_profile,omitempty"`
	Connectivity        Connectivity `json:"connectivity"`
	LastSeen            time.Time    `json:"last_seen"`
	ErrorReported       bool         `json:"error_reported,omitempty"`
	IPAddress           string       `json:"ip_address,omitempty"`
	MACAddress          string       `json:"mac_address,omitempty"`
	DisplayWidth        int          `json:"display_width,omitempty"`
	DisplayHeight       int          `json:"display_height,omitempty"`
	AppVersion          string       `json:"app_version,omitempty"`
}

// StatusReport is the body a tablet posts to the status webhook.
type StatusReport struct {
	DeviceID        string     `json:"device_id"`
	CurrentImage    string     `json:"current_image"`
	CurrentImageURL string     `json:"current_image_url,omitempty"`
	Profile         string     `json:"profile"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Online          *bool      `json:"online,omitempty"`
	Error           bool       `json:"error,omitempty"`
	IPAddress       string     `json:"ip_address,omitempty"`
	MACAddress      string     `json:"mac_address,omitempty"`
	DisplayWidth    int        `json:"display_width,omitempty"`
	DisplayHeight   int        `json:"display_height,omitempty"`
	AppVersion      string     `json:"app_version,omitempty"`
}

// DeviceView pairs desired and observed state for one device. This is the
// read model external consumers see; they never reach the stores directly.
type DeviceView struct {
	Desired  Device       `json:"desired"`
	Observed DeviceStatus `json:"observed"`
}

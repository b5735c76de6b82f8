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
	"fmt"
	"time"
)

// EventKind identifies the coordination events exchanged between the
// registry, the ingest path, the liveness tracker, and the coordinator.
type EventKind string

const (
	EventConfigChanged       EventKind = "config_changed"
	EventStatusUpdated       EventKind = "status_updated"
	EventConnectivityChanged EventKind = "connectivity_changed"
)

// DeviceEvent is one coordination event for one device. Fields beyond
// DeviceID are populated per kind: ProfileChanged for config changes,
// Previous/Current for connectivity transitions.
type DeviceEvent struct {
	Kind           EventKind    `json:"kind"`
	DeviceID       string       `json:"device_id"`
	ProfileChanged bool         `json:"profile_changed,omitempty"`
	Previous       Connectivity `json:"previous,omitempty"`
	Current        Connectivity `json:"current,omitempty"`
	At             time.Time    `json:"at"`
}

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL       string     `json:"url"`
	Domain    string     `json:"domain,omitempty"`
	CredsFile string     `json:"creds_file,omitempty"`
	TLS       *TLSConfig `json:"tls,omitempty"`
}

// TLSConfig holds certificate paths for a mutually authenticated NATS
// connection.
type TLSConfig struct {
	CAFile     string `json:"ca_file"`
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	ServerName string `json:"server_name,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("nats url is required")
	}

	return nil
}

// EventsConfig configures the event publishing system
type EventsConfig struct {
	Enabled    bool     `json:"enabled"`
	StreamName string   `json:"stream_name"`
	Subjects   []string `json:"subjects"`
}

// Validate ensures the events configuration is valid
func (c *EventsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.StreamName == "" {
		c.StreamName = "events" // Default stream name
	}

	if len(c.Subjects) == 0 {
		c.Subjects = []string{"events.device.*"}
	}

	return nil
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// DeviceStatusEventData is the data payload for status update events.
type DeviceStatusEventData struct {
	DeviceID     string    `json:"device_id"`
	CurrentImage string    `json:"current_image,omitempty"`
	Profile      string    `json:"profile,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
	Timestamp    time.Time `json:"timestamp"`
}

// DeviceConnectivityEventData is the data payload for connectivity
// transition events.
type DeviceConnectivityEventData struct {
	DeviceID      string    `json:"device_id"`
	PreviousState string    `json:"previous_state"`
	CurrentState  string    `json:"current_state"`
	LastSeen      time.Time `json:"last_seen"`
	Timestamp     time.Time `json:"timestamp"`
}

// DeviceConfigEventData is the data payload for desired-state change events.
type DeviceConfigEventData struct {
	DeviceID       string    `json:"device_id"`
	ProfileID      string    `json:"profile_id"`
	ProfileChanged bool      `json:"profile_changed"`
	Timestamp      time.Time `json:"timestamp"`
}

package models

import (
	"time"
)

// Device is the desired state for one tablet: identity, control address,
// assigned profile, and display settings. Owned by the registry.
type Device struct {
	DeviceID  string          `json:"device_id"`
	Address   string          `json:"address"`
	ProfileID string          `json:"profile_id"`
	Settings  DisplaySettings `json:"settings"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DisplaySettings mirrors the display block the tablet app understands.
type DisplaySettings struct {
	Clock           bool    `json:"clock"`
	ClockPosition   int     `json:"clock_position"`
	ClockFormat     string  `json:"clock_format"`
	Weather         bool    `json:"weather"`
	IntervalSeconds int     `json:"interval_seconds"`
	KenBurns        bool    `json:"ken_burns"`
	PanSpeed        float64 `json:"pan_speed"`
	Mode            string  `json:"mode"`
}

// Profile is a named photo filter: an opaque search query for the photo
// backend plus path prefixes the tablet must skip.
type Profile struct {
	ProfileID    string    `json:"profile_id"`
	SearchFilter string    `json:"search_filter"`
	ExcludePaths []string  `json:"exclude_paths,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PendingDevice is a tablet that announced itself on the registration
// webhook but has not been approved into the registry yet.
type PendingDevice struct {
	DeviceID  string    `json:"device_id"`
	Address   string    `json:"address"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Reports   int       `json:"reports"`
}

// DefaultDisplaySettings returns the settings applied to devices created
// without an explicit display block, matching the tablet app defaults.
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{
		Clock:           true,
		ClockPosition:   3,
		ClockFormat:     "24h",
		Weather:         false,
		IntervalSeconds: 30,
		KenBurns:        true,
		PanSpeed:        0.5,
		Mode:            "smart_shuffle",
	}
}

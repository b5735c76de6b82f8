package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framehub/framehub/pkg/models"
)

func TestBuildProfileArgs(t *testing.T) {
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	profile := &models.Profile{
		ProfileID:    "christmas",
		SearchFilter: "holiday lights",
		ExcludePaths: []string{"/archive", "/private"},
		CreatedAt:    now.Add(-time.Hour),
		UpdatedAt:    now,
	}

	args := buildProfileArgs(profile)
	require.Len(t, args, 5)

	assert.Equal(t, "christmas", args[0])
	assert.Equal(t, "holiday lights", args[1])
	assert.Equal(t, []string{"/archive", "/private"}, args[2])
	assert.Equal(t, now.Add(-time.Hour), args[3])
	assert.Equal(t, now, args[4])
}

func TestBuildProfileArgsDefaults(t *testing.T) {
	args := buildProfileArgs(&models.Profile{ProfileID: "default"})
	require.Len(t, args, 5)

	assert.Equal(t, []string{}, args[2], "nil exclude paths become an empty array")

	created, ok := args[3].(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, nowUTC(), created, time.Second)
}

func TestBuildDeviceArgs(t *testing.T) {
	device := &models.Device{
		DeviceID:  "kitchen",
		Address:   "192.168.1.40:8080",
		ProfileID: "default",
		Settings:  models.DefaultDisplaySettings(),
	}

	args, err := buildDeviceArgs(device)
	require.NoError(t, err)
	require.Len(t, args, 6)

	assert.Equal(t, "kitchen", args[0])
	assert.Equal(t, "192.168.1.40:8080", args[1])
	assert.Equal(t, "default", args[2])

	raw, ok := args[3].([]byte)
	require.True(t, ok)

	var settings models.DisplaySettings
	require.NoError(t, json.Unmarshal(raw, &settings))
	assert.Equal(t, device.Settings, settings)
}

func TestBuildDeviceStatusArgs(t *testing.T) {
	seen := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)
	status := &models.DeviceStatus{
		DeviceID:            "kitchen",
		CurrentImage:        "img-42",
		LastReportedProfile: "default",
		Connectivity:        models.ConnectivityOnline,
		LastSeen:            seen,
		IPAddress:           "192.168.1.40",
		DisplayWidth:        1920,
		DisplayHeight:       1200,
		AppVersion:          "1.4.2",
	}

	args := buildDeviceStatusArgs(status)
	require.Len(t, args, 13)

	assert.Equal(t, "kitchen", args[0])
	assert.Equal(t, "img-42", args[1])
	assert.Equal(t, "default", args[3])
	assert.Equal(t, "online", args[4])
	assert.Equal(t, seen, args[5])
	assert.Equal(t, 1920, args[9])
	assert.Equal(t, "1.4.2", args[11])

	updated, ok := args[12].(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, nowUTC(), updated, time.Second)
}

func TestBuildDeviceStatusArgsDefaultsConnectivity(t *testing.T) {
	args := buildDeviceStatusArgs(&models.DeviceStatus{DeviceID: "hall"})
	assert.Equal(t, "unknown", args[4])
}

func TestBuildPendingDeviceArgs(t *testing.T) {
	first := time.Date(2025, time.February, 1, 8, 0, 0, 0, time.UTC)
	pending := &models.PendingDevice{
		DeviceID:  "porch",
		Address:   "192.168.1.77:8080",
		FirstSeen: first,
		Reports:   3,
	}

	args := buildPendingDeviceArgs(pending)
	require.Len(t, args, 5)

	assert.Equal(t, "porch", args[0])
	assert.Equal(t, first, args[2])
	assert.Equal(t, first, args[3], "zero last seen falls back to first seen")
	assert.Equal(t, 3, args[4])
}

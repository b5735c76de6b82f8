package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framehub/framehub/pkg/dispatch"
	"github.com/framehub/framehub/pkg/hub"
	"github.com/framehub/framehub/pkg/models"
	"github.com/framehub/framehub/pkg/registry"
)

func TestGetDevicesReturnsViews(t *testing.T) {
	hubSvc := &stubHubService{
		views: []*models.DeviceView{
			{Desired: models.Device{DeviceID: "kitchen", ProfileID: "family"}},
			{Desired: models.Device{DeviceID: "hallway", ProfileID: "family"}},
		},
	}
	server := newTestServer(hubSvc, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	rec := httptest.NewRecorder()

	server.getDevices(rec, req)

	resp := rec.Result()
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []*models.DeviceView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 2)
	assert.Equal(t, "kitchen", views[0].Desired.DeviceID)
	assert.Equal(t, "hallway", views[1].Desired.DeviceID)
}

func TestGetDeviceReturnsView(t *testing.T) {
	hubSvc := &stubHubService{
		view: &models.DeviceView{
			Desired:  models.Device{DeviceID: "kitchen", Address: "192.168.1.50:8080"},
			Observed: models.DeviceStatus{CurrentImage: "img-42", Connectivity: models.ConnectivityOnline},
		},
	}
	server := newTestServer(hubSvc, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/devices/kitchen", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.getDevice(rec, req)

	resp := rec.Result()
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view models.DeviceView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "kitchen", view.Desired.DeviceID)
	assert.Equal(t, "img-42", view.Observed.CurrentImage)
	assert.Equal(t, models.ConnectivityOnline, view.Observed.Connectivity)
}

func TestGetDeviceNotFound(t *testing.T) {
	hubSvc := &stubHubService{viewErr: registry.ErrDeviceNotFound}
	server := newTestServer(hubSvc, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/devices/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	rec := httptest.NewRecorder()

	server.getDevice(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutDeviceCreateUsesDefaultSettings(t *testing.T) {
	regSvc := &stubRegistryService{
		getErr:       registry.ErrDeviceNotFound,
		upsertResult: &models.Device{DeviceID: "kitchen", Address: "192.168.1.50:8080", ProfileID: "family"},
	}
	server := newTestServer(&stubHubService{}, regSvc)

	body, err := json.Marshal(models.DeviceUpsertRequest{Address: "192.168.1.50:8080", ProfileID: "family"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/devices/kitchen", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.putDevice(rec, req)

	resp := rec.Result()
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, regSvc.lastUpsert)
	assert.Equal(t, "kitchen", regSvc.lastUpsert.deviceID)
	assert.Equal(t, "192.168.1.50:8080", regSvc.lastUpsert.address)
	assert.Equal(t, "family", regSvc.lastUpsert.profileID)
	assert.Equal(t, models.DefaultDisplaySettings(), regSvc.lastUpsert.settings)

	var device models.Device
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&device))
	assert.Equal(t, "kitchen", device.DeviceID)
}

func TestPutDeviceUpdateKeepsStoredSettings(t *testing.T) {
	stored := models.DefaultDisplaySettings()
	stored.IntervalSeconds = 45
	stored.KenBurns = false

	regSvc := &stubRegistryService{
		getResult:    &models.Device{DeviceID: "kitchen", Settings: stored},
		upsertResult: &models.Device{DeviceID: "kitchen"},
	}
	server := newTestServer(&stubHubService{}, regSvc)

	body, err := json.Marshal(models.DeviceUpsertRequest{Address: "192.168.1.51:8080", ProfileID: "family"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/devices/kitchen", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.putDevice(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, regSvc.lastUpsert)
	assert.Equal(t, 45, regSvc.lastUpsert.settings.IntervalSeconds)
	assert.False(t, regSvc.lastUpsert.settings.KenBurns)
}

func TestPutDeviceExplicitSettingsWin(t *testing.T) {
	regSvc := &stubRegistryService{
		getResult:    &models.Device{DeviceID: "kitchen", Settings: models.DefaultDisplaySettings()},
		upsertResult: &models.Device{DeviceID: "kitchen"},
	}
	server := newTestServer(&stubHubService{}, regSvc)

	requested := models.DisplaySettings{Mode: "sequential", IntervalSeconds: 10}
	body, err := json.Marshal(models.DeviceUpsertRequest{
		Address:   "192.168.1.50:8080",
		ProfileID: "family",
		Settings:  &requested,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/devices/kitchen", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.putDevice(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, regSvc.lastUpsert)
	assert.Equal(t, requested, regSvc.lastUpsert.settings)
}

func TestPutDeviceRejectsUnknownProfile(t *testing.T) {
	regSvc := &stubRegistryService{
		getErr:    registry.ErrDeviceNotFound,
		upsertErr: registry.ErrInvalidProfileReference,
	}
	server := newTestServer(&stubHubService{}, regSvc)

	body, err := json.Marshal(models.DeviceUpsertRequest{Address: "192.168.1.50:8080", ProfileID: "nope"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/devices/kitchen", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.putDevice(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutDeviceRejectsUndecodableBody(t *testing.T) {
	server := newTestServer(&stubHubService{}, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodPut, "/api/devices/kitchen", bytes.NewReader([]byte("nope")))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.putDevice(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDevice(t *testing.T) {
	regSvc := &stubRegistryService{}
	server := newTestServer(&stubHubService{}, regSvc)

	req := httptest.NewRequest(http.MethodDelete, "/api/devices/kitchen", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.deleteDevice(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "kitchen", regSvc.lastDeleted)
}

func TestDeleteDeviceNotFound(t *testing.T) {
	regSvc := &stubRegistryService{deleteErr: registry.ErrDeviceNotFound}
	server := newTestServer(&stubHubService{}, regSvc)

	req := httptest.NewRequest(http.MethodDelete, "/api/devices/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	rec := httptest.NewRecorder()

	server.deleteDevice(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNextImageDispatches(t *testing.T) {
	hubSvc := &stubHubService{}
	server := newTestServer(hubSvc, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodPost, "/api/devices/kitchen/next_image", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.postNextImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kitchen", hubSvc.lastDeviceID)
}

func TestCommandErrorsMapToStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "busy", err: dispatch.ErrBusy, want: http.StatusConflict},
		{name: "timeout", err: dispatch.ErrTimeout, want: http.StatusGatewayTimeout},
		{name: "unreachable", err: dispatch.ErrUnreachable, want: http.StatusBadGateway},
		{name: "rejected", err: dispatch.ErrRejected, want: http.StatusBadGateway},
		{name: "unknown device", err: dispatch.ErrUnknownDevice, want: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hubSvc := &stubHubService{nextImageErr: tc.err}
			server := newTestServer(hubSvc, &stubRegistryService{})

			req := httptest.NewRequest(http.MethodPost, "/api/devices/kitchen/next_image", nil)
			req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
			rec := httptest.NewRecorder()

			server.postNextImage(rec, req)

			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRefreshConfigDispatches(t *testing.T) {
	hubSvc := &stubHubService{}
	server := newTestServer(hubSvc, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodPost, "/api/devices/kitchen/refresh_config", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.postRefreshConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kitchen", hubSvc.lastDeviceID)
}

func TestSetProfileRequiresProfile(t *testing.T) {
	server := newTestServer(&stubHubService{}, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodPost, "/api/devices/kitchen/set_profile", bytes.NewReader([]byte(`{}`)))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.postSetProfile(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetProfileForwardsRequest(t *testing.T) {
	hubSvc := &stubHubService{}
	server := newTestServer(hubSvc, &stubRegistryService{})

	body, err := json.Marshal(models.SetProfileRequest{Profile: "christmas"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/devices/kitchen/set_profile", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.postSetProfile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kitchen", hubSvc.lastDeviceID)
	assert.Equal(t, "christmas", hubSvc.lastProfileID)
}

func TestSetProfileRejectsUnknownProfile(t *testing.T) {
	hubSvc := &stubHubService{setProfileErr: registry.ErrInvalidProfileReference}
	server := newTestServer(hubSvc, &stubRegistryService{})

	body, err := json.Marshal(models.SetProfileRequest{Profile: "nope"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/devices/kitchen/set_profile", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.postSetProfile(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshFleetReportsOutcome(t *testing.T) {
	hubSvc := &stubHubService{
		fleetResult: &hub.FleetRefreshResult{Dispatched: 2, Failed: []string{"tablet-b"}},
	}
	server := newTestServer(hubSvc, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodPost, "/api/fleet/refresh_config", nil)
	rec := httptest.NewRecorder()

	server.postRefreshFleet(rec, req)

	resp := rec.Result()
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result hub.FleetRefreshResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.Dispatched)
	assert.Equal(t, []string{"tablet-b"}, result.Failed)
}

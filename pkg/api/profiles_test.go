package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framehub/framehub/pkg/hub"
	"github.com/framehub/framehub/pkg/models"
	"github.com/framehub/framehub/pkg/registry"
)

func TestGetProfilesReturnsList(t *testing.T) {
	regSvc := &stubRegistryService{
		profiles: []*models.Profile{
			{ProfileID: "christmas", SearchFilter: "christmas tree"},
			{ProfileID: "family", SearchFilter: "people"},
		},
	}
	server := newTestServer(&stubHubService{}, regSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	rec := httptest.NewRecorder()

	server.getProfiles(rec, req)

	resp := rec.Result()
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profiles []*models.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profiles))
	require.Len(t, profiles, 2)
	assert.Equal(t, "christmas", profiles[0].ProfileID)
}

func TestGetProfileNotFound(t *testing.T) {
	regSvc := &stubRegistryService{getProfileErr: registry.ErrProfileNotFound}
	server := newTestServer(&stubHubService{}, regSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	rec := httptest.NewRecorder()

	server.getProfile(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutProfilePathIdentifierWins(t *testing.T) {
	regSvc := &stubRegistryService{
		upsertProfileResult: &models.Profile{ProfileID: "family", SearchFilter: "people"},
	}
	server := newTestServer(&stubHubService{}, regSvc)

	body, err := json.Marshal(models.Profile{
		ProfileID:    "something-else",
		SearchFilter: "people",
		ExcludePaths: []string{"archive/"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/family", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "family"})
	rec := httptest.NewRecorder()

	server.putProfile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, regSvc.lastProfile)
	assert.Equal(t, "family", regSvc.lastProfile.ProfileID)
	assert.Equal(t, "people", regSvc.lastProfile.SearchFilter)
	assert.Equal(t, []string{"archive/"}, regSvc.lastProfile.ExcludePaths)
}

func TestPutProfileRejectsUndecodableBody(t *testing.T) {
	server := newTestServer(&stubHubService{}, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/family", bytes.NewReader([]byte("{broken")))
	req = mux.SetURLVars(req, map[string]string{"id": "family"})
	rec := httptest.NewRecorder()

	server.putProfile(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteProfile(t *testing.T) {
	regSvc := &stubRegistryService{}
	server := newTestServer(&stubHubService{}, regSvc)

	req := httptest.NewRequest(http.MethodDelete, "/api/profiles/family", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "family"})
	rec := httptest.NewRecorder()

	server.deleteProfile(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "family", regSvc.lastDeletedProfile)
}

func TestDeleteProfileInUse(t *testing.T) {
	regSvc := &stubRegistryService{deleteProfileErr: registry.ErrProfileInUse}
	server := newTestServer(&stubHubService{}, regSvc)

	req := httptest.NewRequest(http.MethodDelete, "/api/profiles/family", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "family"})
	rec := httptest.NewRecorder()

	server.deleteProfile(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetPendingDevices(t *testing.T) {
	now := time.Now().UTC()
	hubSvc := &stubHubService{
		pending: []*models.PendingDevice{
			{DeviceID: "kitchen", Address: "192.168.1.40:8080", FirstSeen: now, LastSeen: now, Reports: 2},
		},
	}
	server := newTestServer(hubSvc, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/discovery/pending", nil)
	rec := httptest.NewRecorder()

	server.getPendingDevices(rec, req)

	resp := rec.Result()
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pending []*models.PendingDevice
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "kitchen", pending[0].DeviceID)
	assert.Equal(t, "192.168.1.40:8080", pending[0].Address)
	assert.Equal(t, 2, pending[0].Reports)
}

func TestApproveDevice(t *testing.T) {
	hubSvc := &stubHubService{
		approveResult: &models.Device{DeviceID: "kitchen", Address: "192.168.1.40:8080", ProfileID: "family"},
	}
	server := newTestServer(hubSvc, &stubRegistryService{})

	body, err := json.Marshal(models.ApproveDeviceRequest{ProfileID: "family"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/discovery/pending/kitchen/approve", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.postApproveDevice(rec, req)

	resp := rec.Result()
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var device models.Device
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&device))
	assert.Equal(t, "kitchen", device.DeviceID)
	assert.Equal(t, "family", device.ProfileID)

	assert.Equal(t, "kitchen", hubSvc.lastDeviceID)
	assert.Equal(t, "family", hubSvc.lastProfileID)
}

func TestApproveDeviceRequiresProfile(t *testing.T) {
	server := newTestServer(&stubHubService{}, &stubRegistryService{})

	req := httptest.NewRequest(http.MethodPost, "/api/discovery/pending/kitchen/approve", bytes.NewReader([]byte(`{}`)))
	req = mux.SetURLVars(req, map[string]string{"id": "kitchen"})
	rec := httptest.NewRecorder()

	server.postApproveDevice(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveDeviceNotPending(t *testing.T) {
	hubSvc := &stubHubService{approveErr: hub.ErrNotPending}
	server := newTestServer(hubSvc, &stubRegistryService{})

	body, err := json.Marshal(models.ApproveDeviceRequest{ProfileID: "family"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/discovery/pending/ghost/approve", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	rec := httptest.NewRecorder()

	server.postApproveDevice(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

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
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/framehub/framehub/pkg/dispatch"
	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Ticker(time.Duration) Ticker {
	return &fakeTicker{c: make(chan time.Time)}
}

// fakeTicker never fires on its own; tests drive sweeps directly or via
// Nudge.
type fakeTicker struct {
	c chan time.Time
}

func (t *fakeTicker) Chan() <-chan time.Time {
	return t.c
}

func (t *fakeTicker) Stop() {}

// recordedRequest is one command the fake transport saw.
type recordedRequest struct {
	Host string
	Path string
	Body string
}

// recordingClient answers every dispatch with 200 and keeps the requests.
// Hosts added to failing get a connection error instead.
type recordingClient struct {
	mu       sync.Mutex
	requests []recordedRequest
	failing  map[string]struct{}
}

func newRecordingClient() *recordingClient {
	return &recordingClient{failing: make(map[string]struct{})}
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	var body string

	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, fail := c.failing[req.URL.Host]; fail {
		return nil, fmt.Errorf("dial tcp %s: connection refused", req.URL.Host)
	}

	c.requests = append(c.requests, recordedRequest{
		Host: req.URL.Host,
		Path: req.URL.Path,
		Body: body,
	})

	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func (c *recordingClient) failHost(host string) {
	c.mu.Lock()
	c.failing[host] = struct{}{}
	c.mu.Unlock()
}

func (c *recordingClient) all() []recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]recordedRequest(nil), c.requests...)
}

func (c *recordingClient) byPath(path string) []recordedRequest {
	var matched []recordedRequest

	for _, r := range c.all() {
		if r.Path == path {
			matched = append(matched, r)
		}
	}

	return matched
}

func testHubConfig() *Config {
	return &Config{
		ListenAddr:     ":0",
		PublicURL:      "http://hub.local:8087",
		WebhookID:      "hook-1",
		SweepInterval:  models.Duration(30 * time.Second),
		OfflineTimeout: models.Duration(90 * time.Second),
		FlushInterval:  models.Duration(10 * time.Second),
		FleetStagger:   models.Duration(time.Millisecond),
		Dispatch: dispatch.Config{
			CommandTimeout:    models.Duration(200 * time.Millisecond),
			ConfigPushTimeout: models.Duration(400 * time.Millisecond),
			MaxRetries:        1,
			InitialBackoff:    models.Duration(time.Millisecond),
			MaxBackoff:        models.Duration(2 * time.Millisecond),
		},
		Immich: models.ImmichConfig{
			BaseURL: "https://photos.example.com",
			APIKey:  "immich-key",
		},
	}
}

// testHub is a hub server with its fake clock and fake transport.
type testHub struct {
	*Server
	clock  *fakeClock
	client *recordingClient
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()

	clock := newFakeClock()
	client := newRecordingClient()

	server, err := NewServer(context.Background(), testHubConfig(), logger.NewTestLogger(),
		WithClock(clock),
		WithDispatchOptions(dispatch.WithHTTPClient(client)))
	require.NoError(t, err)

	return &testHub{Server: server, clock: clock, client: client}
}

// newStartedHub also runs the coordinator and sweep loops and stops them at
// test cleanup.
func newStartedHub(t *testing.T) *testHub {
	t.Helper()

	h := newTestHub(t)
	require.NoError(t, h.Start(context.Background()))

	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		require.NoError(t, h.Stop(stopCtx))
	})

	return h
}

func seedDevice(t *testing.T, h *testHub, deviceID, address, profileID string) {
	t.Helper()

	ctx := context.Background()

	if _, err := h.Registry().GetProfile(ctx, profileID); err != nil {
		_, err := h.Registry().UpsertProfile(ctx, &models.Profile{
			ProfileID:    profileID,
			SearchFilter: "people",
		})
		require.NoError(t, err)
	}

	_, err := h.Registry().UpsertDevice(ctx, deviceID, address, profileID, models.DefaultDisplaySettings())
	require.NoError(t, err)
}

func reportAt(deviceID, image, profile string, at time.Time) *models.StatusReport {
	return &models.StatusReport{
		DeviceID:     deviceID,
		CurrentImage: image,
		Profile:      profile,
		Timestamp:    &at,
	}
}

// drainEvents collects bus events already delivered to the subscription.
func drainEvents(events <-chan models.DeviceEvent) []models.DeviceEvent {
	var got []models.DeviceEvent

	for {
		select {
		case event := <-events:
			got = append(got, event)
		default:
			return got
		}
	}
}

func requireEventually(t *testing.T, condition func() bool, msg string) {
	t.Helper()

	require.Eventually(t, condition, 2*time.Second, 5*time.Millisecond, msg)
}

func hostOf(address string) string {
	return strings.TrimPrefix(address, "http://")
}

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

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/framehub/framehub/pkg/metrics"
)

const (
	streamPingInterval = 30 * time.Second
	streamReadDeadline = 60 * time.Second
)

// handleStream upgrades to a websocket and streams device view updates: a
// full snapshot first, then one view per coordination event.
func (s *APIServer) handleStream(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.checkStreamOrigin(r)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to websocket")

		return
	}

	defer func() {
		_ = conn.Close()
	}()

	// Authentication happens after the upgrade so the handshake is never
	// disturbed; browsers cannot attach headers to it.
	if !s.authenticateStream(r) {
		_ = sendStreamError(conn, "Authentication required")

		return
	}

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	s.logger.Info().
		Str("remote_addr", r.RemoteAddr).
		Msg("Websocket view stream established")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.handleClientMessages(ctx, conn, cancel)

	events, unsubscribe := s.hub.SubscribeEvents()
	defer unsubscribe()

	snapshot := StreamMessage{
		Type:      "snapshot",
		Views:     s.hub.ListDeviceViews(ctx),
		Timestamp: time.Now(),
	}

	if err := conn.WriteJSON(snapshot); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to send view snapshot")

		return
	}

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := conn.WriteJSON(StreamMessage{Type: "ping", Timestamp: time.Now()}); err != nil {
				s.logger.Debug().
					Err(err).
					Str("remote_addr", r.RemoteAddr).
					Msg("Websocket ping failed, closing stream")

				return
			}

		case event, ok := <-events:
			if !ok {
				return
			}

			view, err := s.hub.GetDeviceView(ctx, event.DeviceID)
			if err != nil {
				// Usually a deconfigured device; nothing to stream.
				s.logger.Debug().
					Str("device_id", event.DeviceID).
					Msg("Skipping view update for unknown device")

				continue
			}

			msg := StreamMessage{
				Type:      "view",
				View:      view,
				Timestamp: event.At,
			}

			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug().
					Err(err).
					Str("remote_addr", r.RemoteAddr).
					Msg("Websocket write failed, closing stream")

				return
			}
		}
	}
}

// handleClientMessages reads from the client for disconnect detection.
func (s *APIServer) handleClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := conn.SetReadDeadline(time.Now().Add(streamReadDeadline)); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to set websocket read deadline")
			}

			messageType, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
					s.logger.Debug().Err(err).Msg("Websocket closed unexpectedly")
				}

				cancel()

				return
			}

			if messageType == websocket.CloseMessage {
				cancel()

				return
			}
		}
	}
}

// authenticateStream validates the client after the upgrade. The key may
// arrive as a header, a cookie, or a query parameter.
func (s *APIServer) authenticateStream(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}

	key := r.Header.Get("X-API-Key")

	if key == "" {
		if cookie, err := r.Cookie("api_key"); err == nil {
			key = cookie.Value
		}
	}

	if key == "" {
		key = r.URL.Query().Get("api_key")
	}

	if key == s.apiKey {
		return true
	}

	s.logger.Warn().
		Str("remote_addr", r.RemoteAddr).
		Msg("Websocket authentication failed")

	return false
}

// checkStreamOrigin applies the CORS origin policy to websocket upgrades.
func (s *APIServer) checkStreamOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	if origin == "" {
		return true
	}

	if len(s.corsConfig.AllowedOrigins) == 0 {
		return true
	}

	for _, allowed := range s.corsConfig.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	s.logger.Warn().
		Str("origin", origin).
		Msg("Websocket origin not allowed")

	return false
}

func sendStreamError(conn *websocket.Conn, message string) error {
	return conn.WriteJSON(StreamMessage{
		Type:      "error",
		Error:     message,
		Timestamp: time.Now(),
	})
}

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
	"time"

	"github.com/gorilla/mux"

	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

// APIServer serves the webhook intake, the admin REST surface, and the
// websocket view stream.
type APIServer struct {
	router     *mux.Router
	hub        HubService
	registry   RegistryService
	corsConfig models.CORSConfig
	webhookID  string
	apiKey     string
	logger     logger.Logger
}

// StreamMessage is one websocket frame on /api/ws.
type StreamMessage struct {
	Type      string               `json:"type"` // "snapshot", "view", "ping", "error"
	Views     []*models.DeviceView `json:"views,omitempty"`
	View      *models.DeviceView   `json:"view,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// webhookAck is the acknowledgement body for an accepted status report.
type webhookAck struct {
	Status string `json:"status"`
}

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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/framehub/framehub/pkg/config"
	"github.com/framehub/framehub/pkg/dispatch"
	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

const (
	defaultListenAddr     = ":8087"
	defaultSweepInterval  = 30 * time.Second
	defaultOfflineTimeout = 90 * time.Second
	defaultFlushInterval  = 10 * time.Second
	defaultFleetStagger   = 2 * time.Second
)

var (
	errWebhookIDRequired = errors.New("webhook_id is required")
	errPublicURLRequired = errors.New("public_url is required")
)

// Config is the hub's full configuration.
type Config struct {
	ListenAddr string            `json:"listen_addr"`
	PublicURL  string            `json:"public_url"`
	WebhookID  string            `json:"webhook_id"`
	APIKey     string            `json:"api_key,omitempty"`
	CORS       models.CORSConfig `json:"cors,omitempty"`

	SweepInterval  models.Duration `json:"sweep_interval"`
	OfflineTimeout models.Duration `json:"offline_timeout"`
	FlushInterval  models.Duration `json:"flush_interval"`
	FleetStagger   models.Duration `json:"fleet_stagger"`

	Dispatch dispatch.Config     `json:"dispatch"`
	Immich   models.ImmichConfig `json:"immich"`

	Database *models.DatabaseConfig `json:"database,omitempty"`
	NATS     *models.NATSConfig     `json:"nats,omitempty"`
	Events   *models.EventsConfig   `json:"events,omitempty"`
	Logging  *logger.Config         `json:"logging,omitempty"`
}

// Validate fills defaults and rejects configurations the hub cannot run
// with. Tablets post status to PublicURL, so it must be set explicitly.
func (c *Config) Validate() error {
	if c.WebhookID == "" {
		return errWebhookIDRequired
	}

	if c.PublicURL == "" {
		return errPublicURLRequired
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.SweepInterval <= 0 {
		c.SweepInterval = models.Duration(defaultSweepInterval)
	}

	if c.OfflineTimeout <= 0 {
		c.OfflineTimeout = models.Duration(defaultOfflineTimeout)
	}

	if c.OfflineTimeout <= c.SweepInterval {
		return fmt.Errorf("offline_timeout %s must exceed sweep_interval %s",
			time.Duration(c.OfflineTimeout), time.Duration(c.SweepInterval))
	}

	if c.FlushInterval <= 0 {
		c.FlushInterval = models.Duration(defaultFlushInterval)
	}

	if c.FleetStagger <= 0 {
		c.FleetStagger = models.Duration(defaultFleetStagger)
	}

	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return fmt.Errorf("nats: %w", err)
		}
	}

	if c.Events != nil {
		if err := c.Events.Validate(); err != nil {
			return fmt.Errorf("events: %w", err)
		}
	}

	return nil
}

// StatusWebhookURL is the absolute URL tablets post status reports to. It
// is rendered into every pushed tablet configuration.
func (c *Config) StatusWebhookURL() string {
	return fmt.Sprintf("%s/webhook/%s/status", strings.TrimRight(c.PublicURL, "/"), c.WebhookID)
}

// LoadConfig reads and validates the hub configuration from path.
func LoadConfig(ctx context.Context, path string, log logger.Logger) (*Config, error) {
	loader := config.NewConfig(log)

	var cfg Config

	if err := loader.LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, fmt.Errorf("load hub config: %w", err)
	}

	return &cfg, nil
}

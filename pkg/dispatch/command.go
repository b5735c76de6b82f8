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

package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/framehub/framehub/pkg/models"
)

// CommandKind names one of the tablet control operations.
type CommandKind string

const (
	CommandNextImage     CommandKind = "next_image"
	CommandRefreshConfig CommandKind = "refresh_config"
	CommandSetProfile    CommandKind = "set_profile"
)

// Command is one imperative request to a tablet. Each command maps to a
// single idempotent POST against the tablet's control server.
type Command struct {
	Kind      CommandKind
	ProfileID string
	Config    *models.TabletConfig
}

// NextImage advances the slideshow by one image.
func NextImage() Command {
	return Command{Kind: CommandNextImage}
}

// RefreshConfig pushes a full rendered configuration to the tablet.
func RefreshConfig(config *models.TabletConfig) Command {
	return Command{Kind: CommandRefreshConfig, Config: config}
}

// SetProfile tells the tablet to switch to the named profile. The switch is
// confirmed only by the device's next status report.
func SetProfile(profileID string) Command {
	return Command{Kind: CommandSetProfile, ProfileID: profileID}
}

func (c Command) path() string {
	switch c.Kind {
	case CommandNextImage:
		return "/next"
	case CommandRefreshConfig:
		return "/configure"
	case CommandSetProfile:
		return "/profile"
	default:
		return ""
	}
}

func (c Command) body() ([]byte, error) {
	switch c.Kind {
	case CommandNextImage:
		return nil, nil
	case CommandRefreshConfig:
		if c.Config == nil {
			return nil, fmt.Errorf("refresh_config requires a rendered config")
		}

		return json.Marshal(c.Config)
	case CommandSetProfile:
		return json.Marshal(map[string]string{"profile": c.ProfileID})
	default:
		return nil, fmt.Errorf("unsupported command kind %q", c.Kind)
	}
}

// baseURL normalizes a device address into a URL prefix. Bare host:port
// addresses get an http scheme; trailing slashes are dropped.
func baseURL(address string) string {
	if strings.Contains(address, "://") {
		return strings.TrimRight(address, "/")
	}

	return "http://" + strings.TrimRight(address, "/")
}

// config.go - agent SDK configuration.
// Copyright (C) 2024  hmdev contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config provides agent SDK configuration, sourced from a
// best-effort .env file followed by the process environment followed by
// built-in defaults. Every other package obtains its API URL, developer
// API key, and UDP port override through Load rather than reading
// os.Getenv directly.
package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hmdev/agentsdk/constants"
	"github.com/hmdev/agentsdk/internal/logging"
)

var log = logging.GetLogger("config")

// Config holds the resolved runtime configuration for an AgentConnection.
type Config struct {
	// APIURL is the messaging service's HTTP base URL.
	APIURL string

	// APIKey, when non-empty, is sent as X-Api-Key on every HTTP request.
	APIKey string

	// UDPPort overrides the default UDP port (host port + 0 means "use
	// the HTTP host with DefaultUDPPort").
	UDPPort int
}

var loadDotenvOnce = godotenv.Load

// Load resolves configuration in the order: a .env file in the working
// directory (ignored if absent or malformed), the process environment,
// then built-in defaults.
func Load() *Config {
	if err := loadDotenvOnce(); err != nil {
		log.Debug("no .env file loaded, continuing with process environment")
	}

	cfg := &Config{
		APIURL:  constants.DefaultAPIURL,
		UDPPort: constants.DefaultUDPPort,
	}

	if v := strings.TrimSpace(getenv(constants.EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}

	if v := strings.TrimSpace(getenv(constants.EnvAPIKey)); v != "" {
		cfg.APIKey = v
	} else if v := strings.TrimSpace(getenv(constants.EnvAPIKeyAlt)); v != "" {
		cfg.APIKey = v
	}

	if v := strings.TrimSpace(getenv(constants.EnvUDPPort)); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			cfg.UDPPort = port
		} else {
			log.Warningf("ignoring invalid %s override: %q", constants.EnvUDPPort, v)
		}
	}

	return cfg
}

// getenv is indirected only so tests can stub it without touching the
// real process environment.
var getenv = osGetenv

// config_test.go - configuration tests.
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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withEnv(t *testing.T, vals map[string]string, fn func()) {
	t.Helper()
	old := getenv
	loadOld := loadDotenvOnce
	getenv = func(key string) string { return vals[key] }
	loadDotenvOnce = func(...string) error { return nil }
	defer func() {
		getenv = old
		loadDotenvOnce = loadOld
	}()
	fn()
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{}, func() {
		cfg := Load()
		assert.Equal(t, "https://api.messaging-platform.example.com", cfg.APIURL)
		assert.Empty(t, cfg.APIKey)
		assert.Equal(t, 9999, cfg.UDPPort)
	})
}

func TestLoadOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"MESSAGING_API_URL":  "https://example.test",
		"MESSAGING_API_KEY":  "abc123",
		"MESSAGING_UDP_PORT": "4000",
	}, func() {
		cfg := Load()
		assert.Equal(t, "https://example.test", cfg.APIURL)
		assert.Equal(t, "abc123", cfg.APIKey)
		assert.Equal(t, 4000, cfg.UDPPort)
	})
}

func TestLoadFallsBackToDefaultApiKey(t *testing.T) {
	withEnv(t, map[string]string{"DEFAULT_API_KEY": "fallback"}, func() {
		cfg := Load()
		assert.Equal(t, "fallback", cfg.APIKey)
	})
}

func TestLoadIgnoresInvalidUDPPort(t *testing.T) {
	withEnv(t, map[string]string{"MESSAGING_UDP_PORT": "70000"}, func() {
		cfg := Load()
		assert.Equal(t, 9999, cfg.UDPPort)
	})
	withEnv(t, map[string]string{"MESSAGING_UDP_PORT": "not-a-number"}, func() {
		cfg := Load()
		assert.Equal(t, 9999, cfg.UDPPort)
	})
}

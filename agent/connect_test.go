// connect_test.go - agent connect tests.
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

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmdev/agentsdk/config"
	"github.com/hmdev/agentsdk/crypto"
	"github.com/hmdev/agentsdk/session"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{APIURL: baseURL, UDPPort: 19999}
}

func TestConnectHappyPathWithCredentials(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	opts := NewConnectOptions("alice").WithChannelCredentials("general", "hunter2")

	err := conn.Connect(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, Ready, conn.State())
	assert.Equal(t, "chan-1", conn.ChannelID())
	assert.NotEmpty(t, conn.SessionID())

	wantSecret := crypto.DeriveChannelSecret("general", "hunter2")
	assert.Equal(t, wantSecret, conn.ChannelSecret())
}

func TestConnectRejectsSecondCallWhileReady(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	opts := NewConnectOptions("alice").WithChannelCredentials("general", "hunter2")
	require.NoError(t, conn.Connect(context.Background(), opts))

	err := conn.Connect(context.Background(), opts)
	assert.ErrorIs(t, err, errAlreadyConnected)
}

func TestConnectOptionsRequiresExactlyOneChannelSelector(t *testing.T) {
	neither := NewConnectOptions("alice")
	assert.Error(t, neither.validate())

	both := NewConnectOptions("alice").WithChannelID("chan-1").WithChannelCredentials("name", "pw")
	assert.Error(t, both.validate())

	missingName := NewConnectOptions("alice")
	missingName.ChannelPassword = "pw"
	assert.Error(t, missingName.validate())

	ok := NewConnectOptions("alice").WithChannelID("chan-1")
	assert.NoError(t, ok.validate())
}

func TestConnectOptionsRequiresAgentName(t *testing.T) {
	opts := NewConnectOptions("")
	opts.ChannelID = "chan-1"
	assert.Error(t, opts.validate())
}

func TestConnectWithChannelIDSkipsCreateChannel(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	opts := NewConnectOptions("bob").WithChannelID("chan-1")

	err := conn.Connect(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, Ready, conn.State())
	assert.Empty(t, conn.ChannelSecret())

	srv.mu.Lock()
	createCalls := srv.createCalls
	srv.mu.Unlock()
	assert.Zero(t, createCalls, "connecting by channel id must not call /create-channel")
}

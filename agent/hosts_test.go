// hosts_test.go - host election tests.
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

	"github.com/hmdev/agentsdk/session"
)

func TestIsHostAgentElectsEarliestConnectionTime(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	srv.mu.Lock()
	srv.sessions["sess-100"] = "early"
	srv.connTime["sess-100"] = 100
	srv.sessions["sess-200"] = "middle"
	srv.connTime["sess-200"] = 200
	srv.sessions["sess-300"] = "late"
	srv.connTime["sess-300"] = 300
	srv.mu.Unlock()

	early := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	early.agentName = "early"
	early.state = Ready
	early.sessionID = "sess-100"

	late := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	late.agentName = "late"
	late.state = Ready
	late.sessionID = "sess-300"

	isHost, err := early.IsHostAgent(context.Background())
	require.NoError(t, err)
	assert.True(t, isHost)

	isHost, err = late.IsHostAgent(context.Background())
	require.NoError(t, err)
	assert.False(t, isHost)
}

func TestIsHostAgentAloneOnChannel(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	require.NoError(t, conn.Connect(context.Background(), NewConnectOptions("solo").WithChannelID("chan-1")))

	isHost, err := conn.IsHostAgent(context.Background())
	require.NoError(t, err)
	assert.True(t, isHost)
}

// send_test.go - send path tests.
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

	"github.com/hmdev/agentsdk/crypto"
	"github.com/hmdev/agentsdk/session"
)

func TestSendMessageEncryptsWhenSecretKnown(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	opts := NewConnectOptions("alice").WithChannelCredentials("general", "hunter2")
	require.NoError(t, conn.Connect(context.Background(), opts))

	require.NoError(t, conn.SendMessage(context.Background(), "hello", "", true))

	require.Len(t, srv.events, 1)
	sent := srv.events[0]
	assert.Equal(t, "chat-text", sent["type"])
	assert.Equal(t, true, sent["encrypted"])

	secret := conn.ChannelSecret()
	plain, ok := crypto.DecryptAndVerify(sent["content"].(string), secret)
	require.True(t, ok)
	assert.Equal(t, "hello", plain)
}

func TestSendMessageQuotesLiteralDestination(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	require.NoError(t, conn.Connect(context.Background(), NewConnectOptions("alice").WithChannelID("chan-1")))

	require.NoError(t, conn.SendMessage(context.Background(), "hi", "agent.one", false))

	require.Len(t, srv.events, 1)
	assert.Equal(t, `agent\.one`, srv.events[0]["to"])
}

func TestSendEventRejectsEncryptedWithoutSecret(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	require.NoError(t, conn.Connect(context.Background(), NewConnectOptions("alice").WithChannelID("chan-1")))

	err := conn.SendEvent(context.Background(), "chat-text", "hi", "*", true)
	assert.Error(t, err)
}

func TestSendEphemeralSetsEphemeralFlag(t *testing.T) {
	srv := newFakeServer()
	ts := srv.start()
	defer ts.Close()

	conn := New(testConfig(ts.URL), session.NewMemoryStore(), nil)
	require.NoError(t, conn.Connect(context.Background(), NewConnectOptions("alice").WithChannelCredentials("general", "hunter2")))

	require.NoError(t, conn.SendEphemeral(context.Background(), "typing", "...", "*"))

	require.Len(t, srv.events, 1)
	assert.Equal(t, true, srv.events[0]["ephemeral"])
}

func TestSendRequiresReadyConnection(t *testing.T) {
	conn := New(testConfig("http://127.0.0.1:0"), session.NewMemoryStore(), nil)
	err := conn.SendMessage(context.Background(), "hi", "", true)
	assert.ErrorIs(t, err, errNotReady)
}

// connection.go - agent connection state machine.
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
	"fmt"
	"sync"

	"github.com/hmdev/agentsdk/config"
	"github.com/hmdev/agentsdk/internal/logging"
	"github.com/hmdev/agentsdk/offset"
	"github.com/hmdev/agentsdk/session"
	"github.com/hmdev/agentsdk/transport"
)

var log = logging.GetLogger("agentconn")

// State is a position in the AgentConnection lifecycle.
type State int

// Lifecycle states, matching the DISCONNECTED -> CONNECTING -> READY ->
// DISCONNECTED machine.
const (
	Disconnected State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Ready:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

var (
	errAlreadyConnected = fmt.Errorf("agent: already connected")
	errNotReady         = fmt.Errorf("agent: connection is not ready")
)

// AgentConnection is the client-side state machine for a single channel
// attachment. It owns the transport, the derived channel secret, the
// offset cursors, and the background receive pump. The pump is a
// separate worker created fresh per connection, since its halt channel
// closes permanently once halted.
type AgentConnection struct {
	mu sync.Mutex

	cfg    *config.Config
	http   *transport.HTTPClient
	udp    *transport.UDPClient
	store  session.Store
	policy PasswordRequestPolicy

	state           State
	agentName       string
	sessionID       string
	connectionTime  float64
	channelID       string
	channelName     string
	channelPassword string
	channelSecret   string

	offsets *offset.Tracker

	pending *PendingRequest

	handler EventHandler
	pump    *receivePump

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an AgentConnection against the given configuration. store
// persists session ids across reconnects; a nil store falls back to an
// in-memory store (no cross-process recovery). A nil policy defaults to
// AllowAllPolicy for incoming password requests.
func New(cfg *config.Config, store session.Store, policy PasswordRequestPolicy) *AgentConnection {
	if store == nil {
		store = session.NewMemoryStore()
	}
	if policy == nil {
		policy = AllowAllPolicy{}
	}
	return &AgentConnection{
		cfg:    cfg,
		http:   transport.NewHTTPClient(cfg.APIURL, cfg.APIKey),
		store:  store,
		policy: policy,
		state:  Disconnected,
	}
}

// State returns the connection's current lifecycle state.
func (a *AgentConnection) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ChannelSecret returns the derived symmetric key, if known.
func (a *AgentConnection) ChannelSecret() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channelSecret
}

// ChannelID returns the connected channel's id, if any.
func (a *AgentConnection) ChannelID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channelID
}

// SessionID returns the server-issued session id, if connected.
func (a *AgentConnection) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// isReady reports whether the connection is READY with a live session,
// mirroring the original agent's is_ready guard.
func (a *AgentConnection) isReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == Ready && a.sessionID != ""
}

func (a *AgentConnection) installSecret(secret string) {
	a.mu.Lock()
	a.channelSecret = secret
	a.mu.Unlock()
}

// context returns the connection's cancellable context, the one Connect
// created and Disconnect cancels, so in-flight HTTP calls can unblock
// promptly. Falls back to context.Background if called outside
// READY, which should not happen in practice.
func (a *AgentConnection) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

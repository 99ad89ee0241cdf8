// types.go - agent package types.
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

// Package agent implements the AgentConnection state machine: the
// client-side runtime that negotiates a channel session, derives and
// bootstraps the shared channel secret, drives the long-poll receive
// loop, and multiplexes the HTTP and UDP transports over one logical
// connection. Grounded on the original agent's
// core/agent_connection.py.
package agent

import (
	"crypto/rsa"
	"fmt"

	"github.com/hmdev/agentsdk/constants"
)

// Event is the decoded representation of a channel event, after the
// receive pump (or a one-shot Receive) has attempted decryption.
type Event struct {
	Type      string
	From      string
	To        string
	Date      float64
	Content   string
	Encrypted bool
	Ephemeral bool
}

// EventMessageResult is the normalized result of a receive call.
type EventMessageResult struct {
	Events           []Event
	EphemeralEvents  []Event
	NextGlobalOffset *int64
	NextLocalOffset  *int64
}

// EventHandler receives every event the background receive pump
// delivers. A one-shot Receive returns its events instead of
// dispatching them to the handler.
type EventHandler func(Event)

// PendingRequest is the single outstanding password-exchange request an
// AgentConnection may have in flight.
type PendingRequest struct {
	RequestID  string
	PrivateKey *rsa.PrivateKey
}

// PasswordRequestPolicy decides whether to answer an incoming
// password-request event with this agent's channel credentials.
type PasswordRequestPolicy interface {
	Allow(channelID, requesterName, requesterPublicKeyPEM string) bool
}

// AllowAllPolicy answers every password request, matching the original
// agent's default (no handler configured) behavior.
type AllowAllPolicy struct{}

// Allow implements PasswordRequestPolicy.
func (AllowAllPolicy) Allow(_, _, _ string) bool { return true }

// ConnectOptions is the builder replacing the source's overloaded
// connect(name, password, agentName, **kwargs) entry point.
type ConnectOptions struct {
	ChannelID         string
	ChannelName       string
	ChannelPassword   string
	AgentName         string
	APIKeyScope       string
	EnableWebrtcRelay bool
	CheckLastSession  bool
}

// NewConnectOptions seeds the defaults the original agent applies:
// private API key scope, WebRTC relay disabled, session recovery
// enabled.
func NewConnectOptions(agentName string) *ConnectOptions {
	return &ConnectOptions{
		AgentName:        agentName,
		APIKeyScope:      constants.APIKeyScopePrivate,
		CheckLastSession: true,
	}
}

// WithChannelID joins an existing channel by id; mutually exclusive
// with WithChannelCredentials.
func (o *ConnectOptions) WithChannelID(channelID string) *ConnectOptions {
	o.ChannelID = channelID
	return o
}

// WithChannelCredentials joins (or creates) a channel by name+password.
func (o *ConnectOptions) WithChannelCredentials(name, password string) *ConnectOptions {
	o.ChannelName = name
	o.ChannelPassword = password
	return o
}

// WithAPIKeyScope overrides the default "private" scope.
func (o *ConnectOptions) WithAPIKeyScope(scope string) *ConnectOptions {
	o.APIKeyScope = scope
	return o
}

// WithWebrtcRelay toggles WebRTC relay signaling on connect.
func (o *ConnectOptions) WithWebrtcRelay(enabled bool) *ConnectOptions {
	o.EnableWebrtcRelay = enabled
	return o
}

// WithoutSessionRecovery disables presenting a previously saved session
// id as a reconnect hint.
func (o *ConnectOptions) WithoutSessionRecovery() *ConnectOptions {
	o.CheckLastSession = false
	return o
}

func (o *ConnectOptions) channelKey() string {
	if o.ChannelID != "" {
		return o.ChannelID
	}
	return o.ChannelName
}

func (o *ConnectOptions) validate() error {
	hasID := o.ChannelID != ""
	hasNamePass := o.ChannelName != "" && o.ChannelPassword != ""
	if hasID == hasNamePass {
		return fmt.Errorf("agent: connect requires exactly one of ChannelID or ChannelName+ChannelPassword")
	}
	if o.AgentName == "" {
		return fmt.Errorf("agent: connect requires an AgentName")
	}
	return nil
}

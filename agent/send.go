// send.go - event send paths.
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
	"regexp"

	"github.com/hmdev/agentsdk/constants"
	agentcrypto "github.com/hmdev/agentsdk/crypto"
	"github.com/hmdev/agentsdk/offset"
	"github.com/hmdev/agentsdk/transport"
)

// SendMessage wraps text as a chat-text event to destination (default
// "*", broadcast). If asFilterRegex is false, a given destination is
// treated as a literal string and regex-escaped before being sent as a
// filter pattern. Encrypts automatically when a channel secret is known.
func (a *AgentConnection) SendMessage(ctx context.Context, text, destination string, asFilterRegex bool) error {
	if destination == "" {
		destination = "*"
	} else if !asFilterRegex {
		destination = regexp.QuoteMeta(destination)
	}
	encrypted := a.ChannelSecret() != ""
	return a.SendEvent(ctx, constants.EventChatText, text, destination, encrypted)
}

// SendEvent sends a generic event. The caller decides whether content
// should be encrypted, independent of whether a channel secret is
// known; if encrypted is true and no secret is known, sending fails.
func (a *AgentConnection) SendEvent(ctx context.Context, eventType, content, to string, encrypted bool) error {
	if !a.isReady() {
		return errNotReady
	}

	body := content
	if encrypted {
		secret := a.ChannelSecret()
		if secret == "" {
			return fmt.Errorf("agent: cannot send encrypted event without a channel secret")
		}
		cipher, err := agentcrypto.EncryptAndSign(content, secret)
		if err != nil {
			return fmt.Errorf("agent: encrypt event: %w", err)
		}
		body = cipher
	}

	req := transport.PushRequest{
		Type:      eventType,
		To:        to,
		Encrypted: encrypted,
		Content:   body,
		SessionID: a.SessionID(),
	}
	if err := a.http.Push(ctx, req); err != nil {
		return fmt.Errorf("agent: send event: %w", err)
	}
	return nil
}

// SendEphemeral sends a cache-only event: the server delivers it to
// currently-connected participants without durably persisting it.
func (a *AgentConnection) SendEphemeral(ctx context.Context, eventType, content, to string) error {
	if !a.isReady() {
		return errNotReady
	}

	encrypted := a.ChannelSecret() != ""
	body := content
	if encrypted {
		cipher, err := agentcrypto.EncryptAndSign(content, a.ChannelSecret())
		if err != nil {
			return fmt.Errorf("agent: encrypt ephemeral event: %w", err)
		}
		body = cipher
	}

	req := transport.PushRequest{
		Type:      eventType,
		To:        to,
		Encrypted: encrypted,
		Content:   body,
		SessionID: a.SessionID(),
		Ephemeral: true,
	}
	if err := a.http.Push(ctx, req); err != nil {
		return fmt.Errorf("agent: send ephemeral event: %w", err)
	}
	return nil
}

// UDPPushMessage fire-and-forgets a chat-text event over the UDP
// transport, encrypting when a channel secret is known.
func (a *AgentConnection) UDPPushMessage(text, destination string) error {
	if !a.isReady() {
		return errNotReady
	}

	a.mu.Lock()
	udpClient := a.udp
	a.mu.Unlock()
	if udpClient == nil {
		return fmt.Errorf("agent: udp transport is not open")
	}

	encrypted := a.ChannelSecret() != ""
	body := text
	if encrypted {
		cipher, err := agentcrypto.EncryptAndSign(text, a.ChannelSecret())
		if err != nil {
			return fmt.Errorf("agent: encrypt udp message: %w", err)
		}
		body = cipher
	}

	req := transport.PushRequest{
		Type:      constants.EventChatText,
		To:        destination,
		Encrypted: encrypted,
		Content:   body,
		SessionID: a.SessionID(),
	}
	if err := udpClient.Push(req); err != nil {
		return fmt.Errorf("agent: udp push: %w", err)
	}
	return nil
}

// UDPPull mirrors the HTTP receive path on the datagram transport, with
// the same decryption and auto-event handling as Receive.
func (a *AgentConnection) UDPPull(rc offset.Config) (*EventMessageResult, error) {
	if !a.isReady() {
		return nil, errNotReady
	}

	a.mu.Lock()
	udpClient := a.udp
	a.mu.Unlock()
	if udpClient == nil {
		return nil, fmt.Errorf("agent: udp transport is not open")
	}

	wireResult := udpClient.Pull(a.SessionID(), offsetWire(rc))
	return processReceiveResult(a, wireResult), nil
}

// password.go - password-exchange protocol.
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
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmdev/agentsdk/constants"
	agentcrypto "github.com/hmdev/agentsdk/crypto"
)

type passwordRequestPayload struct {
	RequestID    string `json:"requestId"`
	PublicKeyPEM string `json:"publicKeyPem"`
}

type passwordReplyPayload struct {
	ChannelName     string `json:"channelName,omitempty"`
	ChannelPassword string `json:"channelPassword,omitempty"`
}

// RequestPassword runs the requester side of the password-exchange
// protocol: generate an ephemeral RSA keypair, broadcast a
// password-request, and poll the receive path for a matching reply
// (pulling directly when no receive pump is running).
// Destroys the pending private key on success, failure, or timeout. A
// no-op, returning nil immediately, if the channel secret is already
// known.
func (a *AgentConnection) RequestPassword(ctx context.Context, timeout time.Duration) error {
	if !a.isReady() {
		return errNotReady
	}
	if a.ChannelSecret() != "" {
		return nil
	}
	if timeout <= 0 || timeout > constants.MaxPasswordWaitTimeout {
		timeout = constants.DefaultPasswordWaitTimeout
	}

	keyPair, err := agentcrypto.RSAGenerate()
	if err != nil {
		return fmt.Errorf("agent: generate password-request keypair: %w", err)
	}
	requestID := uuid.NewString()

	a.mu.Lock()
	a.pending = &PendingRequest{RequestID: requestID, PrivateKey: keyPair.Private}
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.pending = nil
		a.mu.Unlock()
	}()

	payload, err := json.Marshal(passwordRequestPayload{RequestID: requestID, PublicKeyPEM: keyPair.PublicPEM})
	if err != nil {
		return fmt.Errorf("agent: marshal password-request: %w", err)
	}
	if err := a.SendEvent(ctx, constants.EventPasswordRequest, string(payload), "*", false); err != nil {
		return fmt.Errorf("agent: broadcast password-request: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if a.ChannelSecret() != "" {
			return nil
		}
		// A running receive pump already processes the reply; without one,
		// pull here so the reply still reaches handlePasswordReply.
		a.mu.Lock()
		pumpRunning := a.pump != nil
		a.mu.Unlock()
		if !pumpRunning {
			pollCtx, cancel := context.WithDeadline(ctx, deadline)
			if _, err := a.Receive(pollCtx, a.offsets.Current()); err != nil {
				log.Debugf("password-request: poll for reply: %v", err)
			}
			cancel()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(constants.PasswordPollInterval):
		}
	}

	if a.ChannelSecret() != "" {
		return nil
	}
	return fmt.Errorf("agent: password-request timed out after %s", timeout)
}

// handlePasswordReply decrypts a password-reply addressed to this
// agent and, if it matches the pending request, installs the channel
// secret. Any failure is swallowed: a malformed or unmatched reply must
// never affect the receive pump.
func handlePasswordReply(a *AgentConnection, ev Event) {
	a.mu.Lock()
	pending := a.pending
	a.mu.Unlock()
	if pending == nil || ev.Content == "" {
		return
	}

	cipherB64, requestID := extractCipher(ev.Content)
	if cipherB64 == "" {
		return
	}
	if requestID != "" && requestID != pending.RequestID {
		log.Debugf("password-reply: requestId %q does not match pending request %q, ignoring", requestID, pending.RequestID)
		return
	}

	plain, err := agentcrypto.RSADecrypt(pending.PrivateKey, cipherB64)
	if err != nil {
		log.Debugf("password-reply: rsa decrypt failed: %v", err)
		return
	}

	channelName := ""
	channelPassword := plain
	var reply passwordReplyPayload
	if err := json.Unmarshal([]byte(plain), &reply); err == nil {
		if reply.ChannelPassword != "" {
			channelPassword = reply.ChannelPassword
		}
		if reply.ChannelName != "" {
			channelName = reply.ChannelName
		}
	}

	a.mu.Lock()
	if channelName != "" && a.channelName == "" {
		a.channelName = channelName
	}
	a.channelPassword = channelPassword
	name := a.channelName
	a.mu.Unlock()

	if name != "" && channelPassword != "" {
		a.installSecret(agentcrypto.DeriveChannelSecret(name, channelPassword))
	}
}

// extractCipher accepts either a JSON wrapper {requestId, cipher} or a
// raw base64 ciphertext, matching the original agent's tolerant parsing
// of password-reply content. When the wrapper carries a requestId, it
// is returned alongside the cipher so the caller can reject a reply
// meant for a different pending request; a raw cipher carries none.
func extractCipher(content string) (cipher, requestID string) {
	var wrapped struct {
		RequestID string `json:"requestId"`
		Cipher    string `json:"cipher"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Cipher != "" {
		return wrapped.Cipher, wrapped.RequestID
	}
	return content, ""
}

// handlePasswordRequest runs the responder side: optionally consults
// the configured PasswordRequestPolicy, and if allowed and this agent
// holds the channel credentials, RSA-encrypts them to the requester's
// public key and replies.
func handlePasswordRequest(a *AgentConnection, ev Event) {
	var req passwordRequestPayload
	if err := json.Unmarshal([]byte(ev.Content), &req); err != nil || req.PublicKeyPEM == "" {
		return
	}

	a.mu.Lock()
	channelID := a.channelID
	channelName := a.channelName
	channelPassword := a.channelPassword
	policy := a.policy
	a.mu.Unlock()

	if policy != nil && !policy.Allow(channelID, ev.From, req.PublicKeyPEM) {
		return
	}
	if channelName == "" || channelPassword == "" {
		return
	}

	payload, err := json.Marshal(passwordReplyPayload{ChannelName: channelName, ChannelPassword: channelPassword})
	if err != nil {
		log.Debugf("password-request: marshal reply payload: %v", err)
		return
	}
	cipherB64, err := agentcrypto.RSAEncrypt(req.PublicKeyPEM, string(payload))
	if err != nil {
		log.Debugf("password-request: rsa encrypt reply: %v", err)
		return
	}

	if err := a.SendEvent(context.Background(), constants.EventPasswordReply, cipherB64, ev.From, false); err != nil {
		log.Debugf("password-request: send reply: %v", err)
	}
}

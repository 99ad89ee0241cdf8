// connect.go - agent connect negotiation.
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

	"github.com/hmdev/agentsdk/constants"
	agentcrypto "github.com/hmdev/agentsdk/crypto"
	"github.com/hmdev/agentsdk/offset"
	"github.com/hmdev/agentsdk/transport"
)

// Connect negotiates a new session per opts. Exactly one of ChannelID
// or (ChannelName+ChannelPassword) must be set; AgentName is required.
// Reconnecting from READY is rejected; the caller must Disconnect
// first.
func (a *AgentConnection) Connect(ctx context.Context, opts *ConnectOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	a.mu.Lock()
	if a.state != Disconnected {
		a.mu.Unlock()
		return errAlreadyConnected
	}
	a.state = Connecting
	a.mu.Unlock()

	var channelSecret, passwordHash string
	if opts.ChannelName != "" && opts.ChannelPassword != "" {
		channelSecret = agentcrypto.DeriveChannelSecret(opts.ChannelName, opts.ChannelPassword)
		passwordHash = agentcrypto.Hash(opts.ChannelPassword, channelSecret)
	}

	req := transport.ConnectRequest{
		AgentName:         opts.AgentName,
		AgentContext:      &transport.AgentContext{AgentType: "go-agent-sdk", Descriptor: constants.UserAgent},
		EnableWebrtcRelay: opts.EnableWebrtcRelay,
		APIKeyScope:       opts.APIKeyScope,
	}

	if opts.CheckLastSession {
		if sid, ok := a.store.Load(opts.channelKey()); ok {
			req.SessionID = sid
		}
	}

	if opts.ChannelID != "" {
		req.ChannelID = opts.ChannelID
	} else {
		channelID, err := a.http.CreateChannel(ctx, opts.ChannelName, passwordHash)
		if err != nil {
			log.Debugf("create-channel failed, falling back to name+password on connect: %v", err)
		} else {
			req.ChannelID = channelID
		}
	}
	if opts.ChannelName != "" && passwordHash != "" {
		req.ChannelName = opts.ChannelName
		req.ChannelPassword = passwordHash
	}

	resp, err := a.http.Connect(ctx, req)
	if err != nil {
		a.mu.Lock()
		a.state = Disconnected
		a.mu.Unlock()
		return fmt.Errorf("agent: connect: %w", err)
	}

	udpClient, err := transport.NewUDPClient(a.cfg.APIURL, a.cfg.UDPPort)
	if err != nil {
		a.mu.Lock()
		a.state = Disconnected
		a.mu.Unlock()
		return fmt.Errorf("agent: open udp transport: %w", err)
	}

	connCtx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	a.udp = udpClient
	a.ctx = connCtx
	a.cancel = cancel
	a.agentName = opts.AgentName
	a.sessionID = resp.SessionID
	if resp.Date != nil {
		a.connectionTime = *resp.Date
	}
	a.channelName = opts.ChannelName
	a.channelPassword = opts.ChannelPassword
	a.channelSecret = channelSecret

	var originalGlobal, global, local int64
	a.channelID = resp.ChannelID
	if resp.State != nil {
		if resp.State.ChannelID != "" {
			a.channelID = resp.State.ChannelID
		}
		if resp.State.OriginalGlobalOffset != nil {
			originalGlobal = *resp.State.OriginalGlobalOffset
		}
		if resp.State.GlobalOffset != nil {
			global = *resp.State.GlobalOffset
		}
		if resp.State.LocalOffset != nil {
			local = *resp.State.LocalOffset
		}
	}
	a.offsets = offset.New(originalGlobal, global, local, constants.DefaultReceiveLimit)

	needsPassword := a.channelSecret == ""
	a.state = Ready
	a.mu.Unlock()

	if err := a.store.Save(opts.channelKey(), resp.SessionID); err != nil {
		log.Warningf("session recovery save failed: %v", err)
	}

	if needsPassword {
		go func() {
			if err := a.RequestPassword(connCtx, constants.DefaultPasswordWaitTimeout); err != nil {
				log.Debugf("automatic password request did not complete: %v", err)
			}
		}()
	}

	return nil
}

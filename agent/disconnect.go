// disconnect.go - agent disconnect teardown.
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
)

// Disconnect tears down the session: posts /disconnect, closes the UDP
// socket, clears the session id, channel secret, and any pending
// password-request key material, and stops the receive pump if
// running. Safe to call while the pump is blocked in a pull.
func (a *AgentConnection) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	if a.state != Ready {
		a.mu.Unlock()
		return nil
	}
	sessionID := a.sessionID
	udpClient := a.udp
	cancel := a.cancel
	a.mu.Unlock()

	err := a.http.Disconnect(ctx, sessionID)

	a.mu.Lock()
	pump := a.pump
	a.mu.Unlock()
	// Cancel before halting: the pump may be blocked inside an in-flight
	// HTTP pull, and canceling its context is what actually unblocks
	// that call. Halting first would wait out the full pull timeout.
	if cancel != nil {
		cancel()
	}
	if pump != nil {
		pump.Halt()
	}
	if udpClient != nil {
		if closeErr := udpClient.Close(); closeErr != nil {
			log.Debugf("closing udp socket: %v", closeErr)
		}
	}

	a.mu.Lock()
	a.state = Disconnected
	a.sessionID = ""
	a.connectionTime = 0
	a.channelSecret = ""
	a.channelPassword = ""
	a.pending = nil
	a.udp = nil
	a.ctx = nil
	a.cancel = nil
	a.pump = nil
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("agent: disconnect: %w", err)
	}
	return nil
}

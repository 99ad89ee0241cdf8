// receive.go - synchronous receive path.
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

	"github.com/hmdev/agentsdk/offset"
	"github.com/hmdev/agentsdk/transport"
)

// Receive performs a single synchronous pull: decrypts and verifies
// encrypted events, runs the same password-exchange auto-interception
// as the background pump, and returns the normalized result. It does
// not dispatch to the handler registered via ReceiveAsync — that is
// reserved for the background pump.
func (a *AgentConnection) Receive(ctx context.Context, rc offset.Config) (*EventMessageResult, error) {
	if !a.isReady() {
		return nil, errNotReady
	}

	wireResult, err := a.http.Pull(ctx, a.SessionID(), offsetWire(rc))
	if err != nil {
		return nil, fmt.Errorf("agent: receive: %w", err)
	}
	return processReceiveResult(a, wireResult), nil
}

// processReceiveResult applies decryption and auto-event handling to a
// raw pull response, shared by Receive, UDPPull, and the background
// pump.
func processReceiveResult(a *AgentConnection, wireResult *transport.EventMessageResult) *EventMessageResult {
	ephemeral := decryptAll(a, wireResult.EphemeralEvents)
	persistent := decryptAll(a, wireResult.Events)

	checkAutoEvents(a, append(append([]Event{}, ephemeral...), persistent...))

	if wireResult.NextGlobalOffset != nil || wireResult.NextLocalOffset != nil {
		a.offsets.Advance(wireResult.NextGlobalOffset, wireResult.NextLocalOffset)
	}

	return &EventMessageResult{
		Events:           persistent,
		EphemeralEvents:  ephemeral,
		NextGlobalOffset: wireResult.NextGlobalOffset,
		NextLocalOffset:  wireResult.NextLocalOffset,
	}
}

// hosts.go - agent participant listing and host election.
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

	"github.com/hmdev/agentsdk/transport"
)

// GetActiveAgents lists every participant currently on the channel.
func (a *AgentConnection) GetActiveAgents(ctx context.Context) ([]transport.AgentInfo, error) {
	if !a.isReady() {
		return nil, errNotReady
	}
	agents, err := a.http.ListAgents(ctx, a.SessionID())
	if err != nil {
		return nil, fmt.Errorf("agent: get active agents: %w", err)
	}
	return agents, nil
}

// GetSystemAgents lists only the channel's system-role participants.
func (a *AgentConnection) GetSystemAgents(ctx context.Context) ([]transport.AgentInfo, error) {
	if !a.isReady() {
		return nil, errNotReady
	}
	agents, err := a.http.ListSystemAgents(ctx, a.SessionID())
	if err != nil {
		return nil, fmt.Errorf("agent: get system agents: %w", err)
	}
	return agents, nil
}

// IsHostAgent reports whether this agent has the earliest
// connectionTime among all active participants; ties are broken by
// whichever order the server returned them in. Used by application
// code to elect a single authoritative sender of initial state to new
// joiners. An agent alone on the channel is always the host.
func (a *AgentConnection) IsHostAgent(ctx context.Context) (bool, error) {
	if !a.isReady() {
		return false, errNotReady
	}

	agents, err := a.GetActiveAgents(ctx)
	if err != nil {
		return false, err
	}
	if len(agents) == 0 {
		return true, nil
	}

	selfName := a.agentNameSnapshot()
	earliestName := selfName
	haveEarliest := false
	var earliestTime float64

	for _, ag := range agents {
		if !haveEarliest || ag.ConnectionTime < earliestTime {
			earliestTime = ag.ConnectionTime
			earliestName = ag.AgentName
			haveEarliest = true
		}
	}

	return earliestName == selfName, nil
}

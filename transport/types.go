// types.go - transport wire types.
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

// Package transport implements the agent SDK's ChannelTransport against a
// messaging service: an HTTP long-poll client carrying create-channel,
// connect, push, pull, list-agents, list-system-agents and disconnect,
// and a UDP request/reply client carrying push and pull only, grounded
// on the original agent's
// http_client.py / messaging_channel_api.py and udp_client.py /
// udp_envelope.py.
package transport

// ChannelState is the server's read-only channel snapshot returned on
// connect, accepted under either the new "state" key or the legacy
// "metadata" key.
type ChannelState struct {
	TopicName            string `json:"topicName,omitempty"`
	ChannelID            string `json:"channelId,omitempty"`
	ChannelName          string `json:"channelName,omitempty"`
	ChannelPassword      string `json:"channelPassword,omitempty"`
	GlobalOffset         *int64 `json:"globalOffset,omitempty"`
	LocalOffset          *int64 `json:"localOffset,omitempty"`
	OriginalGlobalOffset *int64 `json:"originalGlobalOffset,omitempty"`
	OriginalLocalOffset  *int64 `json:"originalLocalOffset,omitempty"`
}

// ReceiveConfigWire is the wire shape of a pull request's receiveConfig.
type ReceiveConfigWire struct {
	GlobalOffset int64  `json:"globalOffset"`
	LocalOffset  int64  `json:"localOffset"`
	Limit        int    `json:"limit"`
	PollSource   string `json:"pollSource,omitempty"`
}

// AgentContext describes this client implementation to the server.
type AgentContext struct {
	AgentType  string `json:"agentType"`
	Descriptor string `json:"descriptor"`
}

// ConnectRequest is the /connect request body.
type ConnectRequest struct {
	ChannelID         string        `json:"channelId,omitempty"`
	ChannelName       string        `json:"channelName,omitempty"`
	ChannelPassword   string        `json:"channelPassword,omitempty"`
	AgentName         string        `json:"agentName"`
	AgentContext      *AgentContext `json:"agentContext,omitempty"`
	SessionID         string        `json:"sessionId,omitempty"`
	EnableWebrtcRelay bool          `json:"enableWebrtcRelay"`
	APIKeyScope       string        `json:"apiKeyScope"`
}

// ConnectResponse is the normalized result of a connect call, after
// unwrapping whichever of the envelope/state/metadata/bare-string shapes
// the server returned.
type ConnectResponse struct {
	SessionID string
	ChannelID string
	Date      *float64
	State     *ChannelState
}

// EventWire is the wire shape of a single event.
type EventWire struct {
	Type      string `json:"type"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Date      *float64 `json:"date,omitempty"`
	Content   string `json:"content"`
	Encrypted bool   `json:"encrypted"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// PushRequest is the /push request body.
type PushRequest struct {
	Type      string `json:"type"`
	To        string `json:"to,omitempty"`
	Encrypted bool   `json:"encrypted"`
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// PullRequest is the /pull request body.
type PullRequest struct {
	SessionID     string            `json:"sessionId"`
	ReceiveConfig ReceiveConfigWire `json:"receiveConfig"`
}

// EventMessageResult is the normalized result of a pull.
type EventMessageResult struct {
	Events           []EventWire
	EphemeralEvents  []EventWire
	NextGlobalOffset *int64
	NextLocalOffset  *int64
}

// AgentInfo describes one active agent, as returned by list-agents and
// list-system-agents.
type AgentInfo struct {
	AgentName      string  `json:"agentName"`
	ConnectionTime float64 `json:"connectionTime"`
}


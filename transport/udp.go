// udp.go - UDP request/reply transport.
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

package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hmdev/agentsdk/constants"
	"github.com/hmdev/agentsdk/internal/logging"
)

var udpLog = logging.GetLogger("transport-udp")

// UDPClient is the low-latency, best-effort sibling of HTTPClient: pushes
// are fire-and-forget datagrams, pulls wait at most UDPPullTimeout for a
// reply and never return an error for "nothing arrived in time" — that
// is reported as an empty result, mirroring udp_client.py's tolerance of
// packet loss on an inherently unreliable transport.
type UDPClient struct {
	remoteAddr *net.UDPAddr
	conn       *net.UDPConn
}

// NewUDPClient derives the remote host from httpBaseURL and opens a
// single unconnected local socket on an ephemeral port, reused for every
// push and pull for the lifetime of the client.
func NewUDPClient(httpBaseURL string, udpPort int) (*UDPClient, error) {
	if udpPort <= 0 {
		udpPort = constants.DefaultUDPPort
	}

	u, err := url.Parse(httpBaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base URL for udp host: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("transport: base URL %q has no host", httpBaseURL)
	}

	remoteAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(udpPort)))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve udp address: %w", err)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("transport: open udp socket: %w", err)
	}

	return &UDPClient{remoteAddr: remoteAddr, conn: conn}, nil
}

// Close releases the local socket.
func (c *UDPClient) Close() error {
	return c.conn.Close()
}

// Push fire-and-forgets a single event over UDP; it does not wait for
// any acknowledgement.
func (c *UDPClient) Push(req PushRequest) error {
	env := udpEnvelope{Action: "push", Payload: req}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: marshal udp push: %w", err)
	}
	if _, err := c.conn.WriteToUDP(data, c.remoteAddr); err != nil {
		return fmt.Errorf("transport: send udp push: %w", err)
	}
	return nil
}

// Pull requests one round of events and waits up to UDPPullTimeout for a
// reply. A timeout or a malformed reply are both treated as "nothing
// available" rather than errors, since UDP delivery is inherently
// unreliable and the caller's receive pump is expected to simply try
// again next round. The reply carries no correlation id of its own —
// send-then-block-for-the-next-datagram, matching the service's actual
// UDP behavior — so requestId is only ever attached to the outgoing
// envelope, never checked on the way back.
func (c *UDPClient) Pull(sessionID string, rc ReceiveConfigWire) *EventMessageResult {
	env := udpEnvelope{
		Action:    "pull",
		Payload:   PullRequest{SessionID: sessionID, ReceiveConfig: rc},
		RequestID: uuid.NewString(),
	}

	data, err := json.Marshal(env)
	if err != nil {
		udpLog.Debugf("marshal udp pull: %v", err)
		return &EventMessageResult{}
	}
	if _, err := c.conn.WriteToUDP(data, c.remoteAddr); err != nil {
		udpLog.Debugf("send udp pull: %v", err)
		return &EventMessageResult{}
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(constants.UDPPullTimeout)); err != nil {
		udpLog.Debugf("set udp read deadline: %v", err)
		return &EventMessageResult{}
	}

	buf := make([]byte, 65536)
	n, _, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		// Deadline exceeded, or any other read failure: no reply in time.
		return &EventMessageResult{}
	}

	var reply udpPullReply
	if err := json.Unmarshal(buf[:n], &reply); err != nil {
		udpLog.Debugf("unmarshal udp pull reply: %v", err)
		return &EventMessageResult{}
	}
	if reply.Status != "ok" || reply.Result == nil || reply.Result.Status != "success" {
		return &EventMessageResult{}
	}

	out := &EventMessageResult{}
	if arr, ok := reply.Result.Data["events"].([]interface{}); ok {
		out.Events = eventsFrom(arr)
	}
	if arr, ok := reply.Result.Data["ephemeralEvents"].([]interface{}); ok {
		out.EphemeralEvents = eventsFrom(arr)
	}
	out.NextGlobalOffset = int64Ptr(reply.Result.Data["nextGlobalOffset"])
	out.NextLocalOffset = int64Ptr(reply.Result.Data["nextLocalOffset"])
	return out
}

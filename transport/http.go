// http.go - HTTP long-poll transport.
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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hmdev/agentsdk/internal/logging"
)

var log = logging.GetLogger("transport-http")

// HTTPClient is the long-poll HTTP path of the ChannelTransport.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *throttle
}

// NewHTTPClient creates an HTTPClient against baseURL. apiKey, if
// non-empty, is sent as X-Api-Key on every request.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
		limiter: newThrottle(),
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body interface{}, timeout time.Duration) ([]byte, error) {
	c.limiter.wait()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read response %s: %w", path, err)
	}
	return data, nil
}

// parsedResponse normalizes the uniform {status,data} envelope and its
// backward-compatible variants: a bare session-id string, a bare event
// array, or a response dict lacking the envelope wrapper.
type parsedResponse struct {
	status  string
	data    map[string]interface{}
	dataArr []interface{}
	bare    string
	isBare  bool
}

func parseResponse(raw []byte) (*parsedResponse, error) {
	var generic interface{}
	if err := decodeBounded(raw, &generic); err != nil {
		return nil, fmt.Errorf("transport: parse response: %w", err)
	}

	switch v := generic.(type) {
	case map[string]interface{}:
		if status, ok := v["status"].(string); ok {
			pr := &parsedResponse{status: status}
			switch d := v["data"].(type) {
			case map[string]interface{}:
				pr.data = d
			case []interface{}:
				pr.dataArr = d
			}
			return pr, nil
		}
		// No envelope: treat the whole dict as the data, success implied.
		return &parsedResponse{status: "success", data: v}, nil
	case []interface{}:
		return &parsedResponse{status: "success", dataArr: v}, nil
	case string:
		return &parsedResponse{status: "success", bare: v, isBare: true}, nil
	default:
		return nil, fmt.Errorf("transport: unrecognized response shape")
	}
}

// channelStateFrom extracts the ChannelState from a data dict, accepting
// either the "state" or legacy "metadata" key.
func channelStateFrom(data map[string]interface{}) *ChannelState {
	raw, ok := data["state"]
	if !ok {
		raw, ok = data["metadata"]
	}
	if !ok || raw == nil {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var state ChannelState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil
	}
	return &state
}

func floatPtr(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func int64Ptr(v interface{}) *int64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	i := int64(f)
	return &i
}

// CreateChannel registers a channel name/password-hash pair and returns
// the server-assigned channelId. Any failure — network, malformed JSON,
// or excessive nesting — returns an error; the caller is expected to
// fall back to sending name+password directly on /connect rather than
// treat this as fatal.
func (c *HTTPClient) CreateChannel(ctx context.Context, channelName, channelPasswordHash string) (string, error) {
	body := map[string]string{"channelName": channelName, "channelPassword": channelPasswordHash}
	raw, err := c.post(ctx, "/create-channel", body, defaultTimeout)
	if err != nil {
		return "", err
	}
	parsed, err := parseResponse(raw)
	if err != nil {
		return "", err
	}
	if parsed.status != "success" || parsed.data == nil {
		return "", fmt.Errorf("transport: create-channel: non-success response")
	}
	id, _ := parsed.data["channelId"].(string)
	if id == "" {
		return "", fmt.Errorf("transport: create-channel: no channelId in response")
	}
	return id, nil
}

// Connect posts the connect request and normalizes the response.
func (c *HTTPClient) Connect(ctx context.Context, req ConnectRequest) (*ConnectResponse, error) {
	raw, err := c.post(ctx, "/connect", req, defaultTimeout)
	if err != nil {
		return nil, err
	}
	parsed, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if parsed.isBare {
		return &ConnectResponse{SessionID: parsed.bare}, nil
	}
	if parsed.status != "success" || parsed.data == nil {
		return nil, fmt.Errorf("transport: connect: non-success response")
	}

	sessionID, _ := parsed.data["sessionId"].(string)
	if sessionID == "" {
		sessionID, _ = parsed.data["session"].(string)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("transport: connect: no sessionId in response")
	}

	resp := &ConnectResponse{SessionID: sessionID}
	resp.Date = floatPtr(parsed.data["date"])
	resp.State = channelStateFrom(parsed.data)
	if resp.State != nil && resp.State.ChannelID != "" {
		resp.ChannelID = resp.State.ChannelID
	} else if cid, ok := parsed.data["channelId"].(string); ok {
		resp.ChannelID = cid
	}
	return resp, nil
}

// Pull issues a long-poll pull request.
func (c *HTTPClient) Pull(ctx context.Context, sessionID string, rc ReceiveConfigWire) (*EventMessageResult, error) {
	req := PullRequest{SessionID: sessionID, ReceiveConfig: rc}
	raw, err := c.post(ctx, "/pull", req, pullTimeout)
	if err != nil {
		return nil, err
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if parsed.dataArr != nil {
		return &EventMessageResult{Events: eventsFrom(parsed.dataArr)}, nil
	}
	if parsed.status != "success" || parsed.data == nil {
		return &EventMessageResult{}, nil
	}

	result := &EventMessageResult{}
	if arr, ok := parsed.data["events"].([]interface{}); ok {
		result.Events = eventsFrom(arr)
	}
	if arr, ok := parsed.data["ephemeralEvents"].([]interface{}); ok {
		result.EphemeralEvents = eventsFrom(arr)
	}
	result.NextGlobalOffset = int64Ptr(parsed.data["nextGlobalOffset"])
	result.NextLocalOffset = int64Ptr(parsed.data["nextLocalOffset"])
	return result, nil
}

func eventsFrom(items []interface{}) []EventWire {
	events := make([]EventWire, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var ev EventWire
		b, err := json.Marshal(m)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(b, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// Push sends a single event.
func (c *HTTPClient) Push(ctx context.Context, req PushRequest) error {
	raw, err := c.post(ctx, "/push", req, defaultTimeout)
	if err != nil {
		return err
	}
	parsed, err := parseResponse(raw)
	if err != nil {
		return err
	}
	if parsed.status != "success" {
		return fmt.Errorf("transport: push: non-success response")
	}
	return nil
}

// ListAgents returns the participants currently on the channel.
func (c *HTTPClient) ListAgents(ctx context.Context, sessionID string) ([]AgentInfo, error) {
	return c.listAgentsAt(ctx, "/list-agents", sessionID)
}

// ListSystemAgents returns only system-role agents.
func (c *HTTPClient) ListSystemAgents(ctx context.Context, sessionID string) ([]AgentInfo, error) {
	return c.listAgentsAt(ctx, "/list-system-agents", sessionID)
}

func (c *HTTPClient) listAgentsAt(ctx context.Context, path, sessionID string) ([]AgentInfo, error) {
	body := map[string]string{"sessionId": sessionID}
	raw, err := c.post(ctx, path, body, defaultTimeout)
	if err != nil {
		return nil, err
	}
	parsed, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.status != "success" {
		return nil, fmt.Errorf("transport: %s: non-success response", path)
	}

	agents := []AgentInfo{}
	for _, item := range parsed.dataArr {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["agentName"].(string)
		var connTime float64
		if f, ok := m["connectionTime"].(float64); ok {
			connTime = f
		}
		agents = append(agents, AgentInfo{AgentName: name, ConnectionTime: connTime})
	}
	return agents, nil
}

// Disconnect tells the server to tear down the session.
func (c *HTTPClient) Disconnect(ctx context.Context, sessionID string) error {
	body := map[string]string{"sessionId": sessionID}
	raw, err := c.post(ctx, "/disconnect", body, defaultTimeout)
	if err != nil {
		return err
	}
	parsed, err := parseResponse(raw)
	if err != nil {
		return err
	}
	if parsed.status != "success" {
		return fmt.Errorf("transport: disconnect: non-success response")
	}
	return nil
}

func init() {
	log.Debug("transport-http initialized")
}

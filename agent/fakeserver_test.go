// fakeserver_test.go - in-memory channel service for agent tests.
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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// fakeServer is a minimal in-memory stand-in for the messaging service,
// enough to exercise connect/push/pull/list-agents/disconnect against a
// single shared channel across multiple agent connections.
type fakeServer struct {
	mu        sync.Mutex
	clock     float64
	sessions  map[string]string // sessionId -> agentName
	connTime  map[string]float64
	events    []map[string]interface{}
	pullCount int

	createCalls int

	// blockPulls, when set, makes handlePull hold the request open
	// (like a real long-poll with nothing new to deliver) instead of
	// answering immediately, so tests can exercise cancellation of an
	// in-flight pull.
	blockPulls bool
}

func (f *fakeServer) pulls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pullCount
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		sessions: make(map[string]string),
		connTime: make(map[string]float64),
	}
}

func (f *fakeServer) tick() float64 {
	f.clock++
	return f.clock
}

func (f *fakeServer) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/create-channel", f.handleCreateChannel)
	mux.HandleFunc("/connect", f.handleConnect)
	mux.HandleFunc("/push", f.handlePush)
	mux.HandleFunc("/pull", f.handlePull)
	mux.HandleFunc("/list-agents", f.handleListAgents)
	mux.HandleFunc("/list-system-agents", f.handleListAgents)
	mux.HandleFunc("/disconnect", f.handleDisconnect)
	return httptest.NewServer(mux)
}

func writeEnvelope(w http.ResponseWriter, data interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "data": data})
}

func (f *fakeServer) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	writeEnvelope(w, map[string]interface{}{"channelId": "chan-1"})
}

func (f *fakeServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.sessions) + 1
	sessionID := fmtSession(n)
	agentName, _ := body["agentName"].(string)
	f.sessions[sessionID] = agentName
	now := f.tick()
	f.connTime[sessionID] = now

	writeEnvelope(w, map[string]interface{}{
		"sessionId": sessionID,
		"date":      now,
		"state": map[string]interface{}{
			"channelId":            "chan-1",
			"globalOffset":         0,
			"localOffset":          0,
			"originalGlobalOffset": 0,
		},
	})
}

func (f *fakeServer) handlePush(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	sessionID, _ := body["sessionId"].(string)
	from := f.sessions[sessionID]
	now := f.tick()
	f.events = append(f.events, map[string]interface{}{
		"type":      body["type"],
		"from":      from,
		"to":        body["to"],
		"content":   body["content"],
		"encrypted": body["encrypted"],
		"ephemeral": body["ephemeral"],
		"date":      now,
	})
	f.mu.Unlock()

	writeEnvelope(w, map[string]interface{}{})
}

func (f *fakeServer) handlePull(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.pullCount++
	blocking := f.blockPulls
	f.mu.Unlock()

	if blocking {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(10 * time.Second):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rc, _ := body["receiveConfig"].(map[string]interface{})
	localOffset := 0
	if lo, ok := rc["localOffset"].(float64); ok {
		localOffset = int(lo)
	}
	if localOffset < 0 {
		localOffset = 0
	}

	var page []map[string]interface{}
	if localOffset < len(f.events) {
		page = f.events[localOffset:]
	}

	writeEnvelope(w, map[string]interface{}{
		"events":           page,
		"ephemeralEvents":  []interface{}{},
		"nextGlobalOffset": len(f.events),
		"nextLocalOffset":  len(f.events),
	})
}

func (f *fakeServer) handleListAgents(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	agents := make([]map[string]interface{}, 0, len(f.sessions))
	for sessionID, name := range f.sessions {
		agents = append(agents, map[string]interface{}{
			"agentName":      name,
			"connectionTime": f.connTime[sessionID],
		})
	}
	writeEnvelope(w, agents)
}

func (f *fakeServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, map[string]interface{}{})
}

func fmtSession(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "sess-" + string(digits[n])
	}
	return "sess-N"
}

// receivepump.go - background receive pump.
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
	"time"

	"github.com/katzenpost/core/worker"

	"github.com/hmdev/agentsdk/constants"
	agentcrypto "github.com/hmdev/agentsdk/crypto"
	"github.com/hmdev/agentsdk/offset"
	"github.com/hmdev/agentsdk/transport"
)

// receivePump is the background worker behind ReceiveAsync. It is
// created fresh per connection and started via Go(p.run), the same
// halt-channel worker convention used elsewhere in this codebase.
type receivePump struct {
	worker.Worker

	conn *AgentConnection
}

// ReceiveAsync starts the receive pump if one is not already running.
// Idempotent: a second call while a pump is active is a no-op. The
// pump is daemonized goroutine state, not a process thread, so it never
// prevents process exit on its own.
func (a *AgentConnection) ReceiveAsync(handler EventHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pump != nil {
		return
	}
	a.handler = handler
	p := &receivePump{conn: a}
	a.pump = p
	p.Go(p.run)
}

func (p *receivePump) run() {
	a := p.conn
	rc := a.offsets.Initial()

	for {
		select {
		case <-p.HaltCh():
			return
		default:
		}

		if !a.isReady() {
			return
		}

		result, err := a.http.Pull(a.context(), a.SessionID(), offsetWire(rc))
		if err != nil {
			log.Debugf("receive pump: pull failed, retrying: %v", err)
			if sleepOrHalt(p, constants.ReceivePumpIdleDelay) {
				return
			}
			continue
		}

		normalized := processReceiveResult(a, result)
		dispatchAll(a, normalized.EphemeralEvents)
		dispatchAll(a, normalized.Events)

		rc = a.offsets.Current()

		if sleepOrHalt(p, constants.ReceivePumpIdleDelay) {
			return
		}
	}
}

// sleepOrHalt sleeps for d, or returns true early if the pump is halted
// meanwhile, bounding pump quiescence after Disconnect to the sleep
// interval.
func sleepOrHalt(p *receivePump, d time.Duration) bool {
	select {
	case <-p.HaltCh():
		return true
	case <-time.After(d):
		return false
	}
}

func offsetWire(c offset.Config) transport.ReceiveConfigWire {
	return transport.ReceiveConfigWire{
		GlobalOffset: c.GlobalOffset,
		LocalOffset:  c.LocalOffset,
		Limit:        c.Limit,
		PollSource:   constants.PollSourceAuto,
	}
}

func eventFromWire(w transport.EventWire) Event {
	ev := Event{
		Type:      w.Type,
		From:      w.From,
		To:        w.To,
		Content:   w.Content,
		Encrypted: w.Encrypted,
		Ephemeral: w.Ephemeral,
	}
	if w.Date != nil {
		ev.Date = *w.Date
	}
	return ev
}

// decryptAll attempts decryptAndVerify on every encrypted event using
// the connection's current channel secret. Failures are soft: the
// event is left untouched (still encrypted, original ciphertext
// content) rather than dropped.
func decryptAll(a *AgentConnection, wire []transport.EventWire) []Event {
	secret := a.ChannelSecret()
	events := make([]Event, 0, len(wire))
	for _, w := range wire {
		ev := eventFromWire(w)
		if ev.Encrypted && secret != "" {
			if plain, ok := agentcrypto.DecryptAndVerify(ev.Content, secret); ok {
				ev.Content = plain
				ev.Encrypted = false
			}
		}
		events = append(events, ev)
	}
	return events
}

func dispatchAll(a *AgentConnection, events []Event) {
	a.mu.Lock()
	handler := a.handler
	a.mu.Unlock()
	if handler == nil {
		return
	}
	for _, ev := range events {
		dispatchOne(handler, ev)
	}
}

// dispatchOne recovers from a panicking handler: the pump is the
// application's only information channel and must never die because a
// caller's callback misbehaved.
func dispatchOne(handler EventHandler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Warningf("receive pump: handler panicked: %v", r)
		}
	}()
	handler(ev)
}

// checkAutoEvents intercepts protocol-reserved event types newer than
// this connection's connectionTime, running the password-exchange
// continuation described in the password-exchange protocol. These
// events are still delivered to the handler above; this only adds the
// side effect.
func checkAutoEvents(a *AgentConnection, events []Event) {
	connTime := a.connectionTimeSnapshot()
	agentName := a.agentNameSnapshot()

	for _, ev := range events {
		if ev.Date <= connTime {
			continue
		}
		switch ev.Type {
		case constants.EventPasswordRequest:
			handlePasswordRequest(a, ev)
		case constants.EventPasswordReply:
			if ev.To == agentName {
				handlePasswordReply(a, ev)
			}
		}
	}
}

func (a *AgentConnection) connectionTimeSnapshot() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectionTime
}

func (a *AgentConnection) agentNameSnapshot() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agentName
}

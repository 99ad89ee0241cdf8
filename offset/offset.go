// offset.go - dual-cursor offset tracker.
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

// Package offset implements the dual-cursor OffsetTracker used by pull
// requests: a globalOffset spanning channel re-creations and a
// localOffset scoped to this connection instance.
package offset

import "sync"

// Config mirrors the wire ReceiveConfig shape.
type Config struct {
	GlobalOffset int64
	LocalOffset  int64
	Limit        int
	PollSource   string
}

// Tracker holds the current cursor plus the original starting point
// captured at connect time, so a caller can restart consumption from the
// channel's beginning without reconnecting.
type Tracker struct {
	mu sync.Mutex

	current  Config
	initial  Config
	original Config
}

// New creates a Tracker seeded with the channel state returned by
// connect. limit is applied to both the initial and current snapshots.
func New(originalGlobalOffset, globalOffset, localOffset int64, limit int) *Tracker {
	t := &Tracker{
		initial: Config{GlobalOffset: originalGlobalOffset, LocalOffset: 0, Limit: limit},
		current: Config{GlobalOffset: globalOffset, LocalOffset: localOffset, Limit: limit},
	}
	t.original = t.initial
	return t
}

// Current returns a copy of the tracker's live cursor, safe to hand to a
// pull request without holding the tracker's lock.
func (t *Tracker) Current() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Initial returns the snapshot a fresh receive pump should start from to
// read the channel from the beginning.
func (t *Tracker) Initial() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initial
}

// Original returns the very first snapshot captured at connect time,
// regardless of any later Reset.
func (t *Tracker) Original() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.original
}

// Advance promotes the current cursor from a pull response. Either
// offset may be nil (absent in the response), in which case the previous
// value is retained. Offsets only move forward.
func (t *Tracker) Advance(nextGlobal, nextLocal *int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if nextGlobal != nil && *nextGlobal > t.current.GlobalOffset {
		t.current.GlobalOffset = *nextGlobal
	}
	if nextLocal != nil && *nextLocal > t.current.LocalOffset {
		t.current.LocalOffset = *nextLocal
	}
}

// ResetToInitial rewinds the current cursor back to the channel's
// original starting point, letting a caller replay history on demand.
func (t *Tracker) ResetToInitial() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = t.initial
}

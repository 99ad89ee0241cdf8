// throttle.go - fixed-window request throttle.
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
	"sync"
	"time"

	"github.com/hmdev/agentsdk/constants"
)

// throttle is a hand-rolled fixed-window request limiter: at most
// ThrottleMaxRequests requests are allowed per ThrottleWindow; once the
// budget is exhausted, the caller sleeps until the window ends and a new
// window starts with the blocked request as its first member. The count
// resets at each window boundary, so requests at the end of one window
// and at the start of the next can together exceed ThrottleMaxRequests
// within less than one ThrottleWindow. A token-bucket limiter
// (golang.org/x/time/rate) was not used: its continuous refill does not
// express this fixed reset.
type throttle struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

func newThrottle() *throttle {
	return &throttle{}
}

// wait blocks, if necessary, until a request is permitted under the
// current window's budget, then records it.
func (t *throttle) wait() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if t.windowStart.IsZero() || now.Sub(t.windowStart) >= constants.ThrottleWindow {
		t.windowStart = now
		t.count = 0
	}

	if t.count >= constants.ThrottleMaxRequests {
		sleepFor := constants.ThrottleWindow - now.Sub(t.windowStart)
		if sleepFor > 0 {
			t.mu.Unlock()
			time.Sleep(sleepFor)
			t.mu.Lock()
		}
		t.windowStart = time.Now()
		t.count = 0
	}

	t.count++
}

// throttle_test.go - throttle tests.
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
	"testing"
	"time"

	"github.com/hmdev/agentsdk/constants"
)

func TestThrottleAllowsBurstUpToLimit(t *testing.T) {
	th := newThrottle()
	start := time.Now()
	for i := 0; i < constants.ThrottleMaxRequests; i++ {
		th.wait()
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected burst within window to not block, took %v", elapsed)
	}
}

func TestThrottleBlocksPastLimit(t *testing.T) {
	th := newThrottle()
	for i := 0; i < constants.ThrottleMaxRequests; i++ {
		th.wait()
	}
	start := time.Now()
	th.wait()
	if elapsed := time.Since(start); elapsed < constants.ThrottleWindow/2 {
		t.Fatalf("expected the request over budget to wait out the window, took %v", elapsed)
	}
}

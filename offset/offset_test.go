// offset_test.go - offset tracker tests.
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

package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSnapshotsOriginalGlobalOffset(t *testing.T) {
	tr := New(0, 42, 7, 20)
	assert.Equal(t, Config{GlobalOffset: 0, LocalOffset: 0, Limit: 20}, tr.Initial())
	assert.Equal(t, Config{GlobalOffset: 42, LocalOffset: 7, Limit: 20}, tr.Current())
}

func TestAdvancePromotesBothOffsets(t *testing.T) {
	tr := New(0, 0, 0, 20)
	g, l := int64(10), int64(3)
	tr.Advance(&g, &l)
	assert.Equal(t, int64(10), tr.Current().GlobalOffset)
	assert.Equal(t, int64(3), tr.Current().LocalOffset)
}

func TestAdvanceRetainsAbsentOffset(t *testing.T) {
	tr := New(0, 5, 2, 20)
	g := int64(9)
	tr.Advance(&g, nil)
	assert.Equal(t, int64(9), tr.Current().GlobalOffset)
	assert.Equal(t, int64(2), tr.Current().LocalOffset)
}

func TestAdvanceNeverRegresses(t *testing.T) {
	tr := New(0, 10, 10, 20)
	g, l := int64(1), int64(1)
	tr.Advance(&g, &l)
	assert.Equal(t, int64(10), tr.Current().GlobalOffset)
	assert.Equal(t, int64(10), tr.Current().LocalOffset)
}

func TestResetToInitial(t *testing.T) {
	tr := New(0, 50, 50, 20)
	tr.ResetToInitial()
	assert.Equal(t, tr.Initial(), tr.Current())
}

// logging.go - agent SDK logging.
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

// Package logging provides the agent SDK's logging backend, a thin
// wrapper around github.com/op/go-logging that hands out one named
// logger per component the way client.go's logBackend.GetLogger did
// for the mixnet client.
package logging

import (
	"os"

	logging "github.com/op/go-logging"
)

var (
	backend logging.LeveledBackend
	format  = logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`,
	)
)

func init() {
	base := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(base, format)
	backend = logging.AddModuleLevel(formatted)
	backend.SetLevel(logging.INFO, "")
}

// SetLevel adjusts the global logging level, e.g. "DEBUG" during tests.
func SetLevel(level string) {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return
	}
	backend.SetLevel(lvl, "")
}

// GetLogger returns a logger scoped to the named component.
func GetLogger(module string) *logging.Logger {
	log := logging.MustGetLogger(module)
	log.SetBackend(backend)
	return log
}

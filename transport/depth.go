// depth.go - bounded JSON decoding.
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
	"encoding/json"
	"fmt"

	"github.com/hmdev/agentsdk/constants"
)

// decodeBounded unmarshals data into v, first rejecting documents nested
// past constants.MaxJSONDepth. The original Python agent relied on
// catching an interpreter recursion error from a deeply nested
// create-channel response and treated it as a normal transport failure;
// here the depth is bounded explicitly up front instead.
func decodeBounded(data []byte, v interface{}) error {
	if err := checkDepth(data); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func checkDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	maxDepth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch tok.(type) {
		case json.Delim:
			d := tok.(json.Delim)
			switch d {
			case '{', '[':
				depth++
				if depth > maxDepth {
					maxDepth = depth
				}
			case '}', ']':
				depth--
			}
		}
	}
	if maxDepth > constants.MaxJSONDepth {
		return fmt.Errorf("transport: response exceeds max JSON depth of %d", constants.MaxJSONDepth)
	}
	return nil
}

/*
Copyright © 2024 the RUQ authors.
This file is part of RUQ.

RUQ is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RUQ is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RUQ.  If not, see <http://www.gnu.org/licenses/>.
*/

package hash

import (
	"math"
	"testing"
)

type config struct {
	N      int
	Values []float64
	Name   string
}

func TestHash(t *testing.T) {
	a := Hash(config{N: 1, Values: []float64{1, 2}, Name: "a"})
	if len(a) != 16 {
		t.Errorf("hash %q should have 16 hex digits", a)
	}
	if b := Hash(config{N: 1, Values: []float64{1, 2}, Name: "a"}); a != b {
		t.Errorf("equal objects hash to %s and %s", a, b)
	}
	if b := Hash(config{N: 2, Values: []float64{1, 2}, Name: "a"}); a == b {
		t.Error("different objects have the same hash")
	}
}

// Gob cannot encode structs without exported fields.
type unexported struct {
	x float64
}

func TestHashNotEncodable(t *testing.T) {
	a := Hash(unexported{x: math.Pi})
	if b := Hash(unexported{x: math.Pi}); a != b {
		t.Errorf("hashes %s and %s should be equal", a, b)
	}
	if b := Hash(unexported{x: 1}); a == b {
		t.Error("different objects have the same hash")
	}
}

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

package ruq

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Track is a reference point of a realization's plume followed through
// time, such as its leading edge or its concentration maximum. X and Y
// are in grid cells and Time is in the units of StudyConfig.Dt.
type Track struct {
	Time, X, Y []float64
}

// NewTrack converts an [n, 3] array whose rows are (time, x, y).
func NewTrack(what string, a *sparse.DenseArray) (*Track, error) {
	if a == nil || len(a.Shape) != 2 || a.Shape[1] != 3 {
		var got []int
		if a != nil {
			got = a.Shape
		}
		return nil, &ShapeMismatchError{What: what, Want: []int{-1, 3}, Got: got}
	}
	n := a.Shape[0]
	t := &Track{Time: make([]float64, n), X: make([]float64, n), Y: make([]float64, n)}
	for i := 0; i < n; i++ {
		t.Time[i], t.X[i], t.Y[i] = a.Get(i, 0), a.Get(i, 1), a.Get(i, 2)
		if math.IsNaN(t.Time[i]) || math.IsInf(t.Time[i], 0) {
			return nil, fmt.Errorf("ruq: %s: point %d has time %g", what, i, t.Time[i])
		}
	}
	return t, nil
}

// Len returns the number of points in the track.
func (t *Track) Len() int { return len(t.Time) }

// step returns the time step index of point i.
func (t *Track) step(i int, dt float64) int { return int(math.Floor(t.Time[i] / dt)) }

// At returns the points recorded during time step index step.
func (t *Track) At(step int, dt float64) *Track {
	return t.filter(func(i int) bool { return t.step(i, dt) == step })
}

// Through returns the points recorded up to and including time step
// index step.
func (t *Track) Through(step int, dt float64) *Track {
	return t.filter(func(i int) bool { return t.step(i, dt) <= step })
}

func (t *Track) filter(keep func(int) bool) *Track {
	o := new(Track)
	for i := range t.Time {
		if keep(i) {
			o.Time = append(o.Time, t.Time[i])
			o.X = append(o.X, t.X[i])
			o.Y = append(o.Y, t.Y[i])
		}
	}
	return o
}

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
	"errors"
	"reflect"
	"testing"
)

func TestWellSeries(t *testing.T) {
	// 2 realizations, 3 time steps, 2x2 grid.
	all := dense([]int{2, 3, 2, 2})
	for r := 0; r < 2; r++ {
		for ti := 0; ti < 3; ti++ {
			all.Set(float64(10*r+ti), r, ti, 1, 0) // y=1, x=0
			all.Set(float64(-ti), r, ti, 0, 1)     // y=0, x=1
		}
	}
	wells := []Well{{X: 0, Y: 1}, {X: 1, Y: 0}}
	series, err := WellSeries(all, wells)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 2, 3}; !reflect.DeepEqual(series.Shape, want) {
		t.Fatalf("shape = %v; want %v", series.Shape, want)
	}
	want := []float64{
		0, 1, 2, 10, 11, 12,
		0, -1, -2, 0, -1, -2,
	}
	if !reflect.DeepEqual(series.Elements, want) {
		t.Errorf("series = %v; want %v", series.Elements, want)
	}

	maxConc, err := MaxPerRealization(series)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 2}; !reflect.DeepEqual(maxConc.Shape, want) {
		t.Errorf("max shape = %v; want %v", maxConc.Shape, want)
	}
	if want := []float64{2, 12, 0, 0}; !reflect.DeepEqual(maxConc.Elements, want) {
		t.Errorf("max = %v; want %v", maxConc.Elements, want)
	}
}

func TestWellSeriesOutOfRange(t *testing.T) {
	all := dense([]int{1, 1, 2, 2})
	_, err := WellSeries(all, []Well{{X: 2, Y: 0}})
	var ie *IndexOutOfRangeError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v; want IndexOutOfRangeError", err)
	}
}

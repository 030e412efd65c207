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

	"github.com/ctessum/sparse"
)

func TestStack(t *testing.T) {
	a := dense([]int{2, 2}, 1, 2, 3, 4)
	b := dense([]int{2, 2}, 5, 6, 7, 8)
	s, err := Stack(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 2, 2}; !reflect.DeepEqual(s.Shape, want) {
		t.Errorf("shape = %v; want %v", s.Shape, want)
	}
	if v := s.Get(1, 0, 1); v != 6 {
		t.Errorf("s[1, 0, 1] = %g; want 6", v)
	}
	u, err := Unstack(s, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(u.Elements, b.Elements) {
		t.Errorf("unstack = %v; want %v", u.Elements, b.Elements)
	}
	u.Elements[0] = -1
	if s.Elements[4] != 5 {
		t.Error("Unstack should return a copy")
	}
	if _, err := Unstack(s, 2); err == nil {
		t.Error("expected an error for realization out of range")
	}
}

func TestStackShapeMismatch(t *testing.T) {
	_, err := Stack(dense([]int{2, 2}), dense([]int{2, 2}), dense([]int{2, 3}))
	var se *ShapeMismatchError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v; want ShapeMismatchError", err)
	}
	if se.What != "realization 2" {
		t.Errorf("offending field = %q; want realization 2", se.What)
	}
	if _, err := Stack(); err == nil {
		t.Error("expected an error for no fields")
	}
	for name, fields := range map[string][]*sparse.DenseArray{
		"nil later": {dense([]int{2, 2}), nil},
		"nil first": {nil, dense([]int{2, 2})},
		"all nil":   {nil, nil},
	} {
		if _, err := Stack(fields...); !errors.As(err, &se) {
			t.Errorf("%s: err = %v; want ShapeMismatchError", name, err)
		}
	}
}

func TestMeanVariance(t *testing.T) {
	s := dense([]int{4, 2}, 1, 10, 2, 10, 3, 10, 6, 10)
	mean, err := Mean(s)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{3, 10}; !reflect.DeepEqual(mean.Elements, want) {
		t.Errorf("mean = %v; want %v", mean.Elements, want)
	}
	variance, err := Variance(s)
	if err != nil {
		t.Fatal(err)
	}
	// Population variance: (4 + 1 + 0 + 9) / 4.
	if want := []float64{3.5, 0}; !reflect.DeepEqual(variance.Elements, want) {
		t.Errorf("variance = %v; want %v", variance.Elements, want)
	}
}

func TestMeanIdempotent(t *testing.T) {
	f := dense([]int{2, 3}, 1, 2, 3, 4, 5, 6)
	s, err := Stack(f, f, f)
	if err != nil {
		t.Fatal(err)
	}
	mean, err := Mean(s)
	if err != nil {
		t.Fatal(err)
	}
	variance, err := Variance(s)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(mean.Elements, f.Elements) {
		t.Errorf("mean = %v; want %v", mean.Elements, f.Elements)
	}
	for i, v := range variance.Elements {
		if v != 0 {
			t.Errorf("variance %d = %g; want 0", i, v)
		}
	}
}

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
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

const testTolerance = 1e-10

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// memStore is an in-memory FieldStore.
type memStore struct {
	data  map[string]*sparse.DenseArray
	saves int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]*sparse.DenseArray)}
}

func (s *memStore) Load(ctx context.Context, key string) (*sparse.DenseArray, error) {
	d, ok := s.data[key]
	if !ok {
		return nil, &MissingArtifactError{Key: key}
	}
	return d.Copy(), nil
}

func (s *memStore) Save(ctx context.Context, key string, data *sparse.DenseArray) error {
	s.data[key] = data.Copy()
	s.saves++
	return nil
}

// dense creates an array with the given shape and elements.
func dense(shape []int, elements ...float64) *sparse.DenseArray {
	a := sparse.ZerosDense(shape...)
	copy(a.Elements, elements)
	return a
}

func testConfig() StudyConfig {
	return StudyConfig{
		NRealization: 3,
		Kg:           1,
		Lx:           4,
		Ly:           3,
		LambdaX:      1,
		LambdaY:      1,
		Source:       Region{XL: 0, XU: 1, YL: 0, YU: 2},
		Target:       Region{XL: 2, XU: 4, YL: 0, YU: 3},
		MCL:          0.5,
		Wells:        []Well{{X: 3, Y: 1}},
		Dt:           1,
		Bins:         3,
	}
}

func TestValidate(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		modify func(*StudyConfig)
		index  bool
	}{
		{name: "no realizations", modify: func(c *StudyConfig) { c.NRealization = 0 }},
		{name: "zero Kg", modify: func(c *StudyConfig) { c.Kg = 0 }},
		{name: "NaN MCL", modify: func(c *StudyConfig) { c.MCL = math.NaN() }},
		{name: "negative Dt", modify: func(c *StudyConfig) { c.Dt = -1 }},
		{name: "no bins", modify: func(c *StudyConfig) { c.Bins = 0 }},
		{name: "empty grid", modify: func(c *StudyConfig) { c.Lx = 0 }},
		{name: "correlation length", modify: func(c *StudyConfig) { c.LambdaY = 0 }},
		{name: "empty target", modify: func(c *StudyConfig) { c.Target.XU = c.Target.XL }, index: true},
		{name: "target outside grid", modify: func(c *StudyConfig) { c.Target.YU = 4 }, index: true},
		{name: "source on last column", modify: func(c *StudyConfig) { c.Source.XU = 4 }, index: true},
		{name: "well outside grid", modify: func(c *StudyConfig) { c.Wells = []Well{{X: 4, Y: 0}} }, index: true},
		{name: "negative well", modify: func(c *StudyConfig) { c.Wells = []Well{{X: 0, Y: -1}} }, index: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := testConfig()
			test.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			var ie *IndexOutOfRangeError
			if test.index != errors.As(err, &ie) {
				t.Errorf("IndexOutOfRangeError = %v; want %v (%v)", !test.index, test.index, err)
			}
		})
	}
}

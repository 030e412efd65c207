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
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestEmpiricalSurvival(t *testing.T) {
	tests := []struct {
		name          string
		samples       []float64
		bins          int
		mid, survival []float64
		bottomP       float64
	}{
		{
			name:     "point mass at zero",
			samples:  []float64{0, 0, 2, 4, 8},
			bins:     3,
			mid:      []float64{3, 5, 7},
			survival: []float64{0.4, 0.2, 0},
			bottomP:  0.4,
		},
		{
			name:     "all zero",
			samples:  []float64{0, 0, 0},
			bins:     4,
			mid:      []float64{0.125, 0.375, 0.625, 0.875},
			survival: []float64{0, 0, 0, 0},
			bottomP:  1,
		},
		{
			name:     "single positive value",
			samples:  []float64{0, 5},
			bins:     2,
			mid:      []float64{4.75, 5.25},
			survival: []float64{0.5, 0},
			bottomP:  0.5,
		},
		{
			name:     "no zeros",
			samples:  []float64{1, 2, 3, 4},
			bins:     3,
			mid:      []float64{1.5, 2.5, 3.5},
			survival: []float64{0.75, 0.5, 0},
			bottomP:  0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mid, survival, bottomP, err := EmpiricalSurvival(test.samples, test.bins)
			if err != nil {
				t.Fatal(err)
			}
			if !floats.EqualApprox(mid, test.mid, testTolerance) {
				t.Errorf("midpoints = %v; want %v", mid, test.mid)
			}
			if !floats.EqualApprox(survival, test.survival, testTolerance) {
				t.Errorf("survival = %v; want %v", survival, test.survival)
			}
			if bottomP != test.bottomP {
				t.Errorf("bottom p = %g; want %g", bottomP, test.bottomP)
			}
		})
	}
}

func TestEmpiricalSurvivalProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := make([]float64, 500)
	for i := range samples {
		if rng.Float64() < 0.3 {
			continue
		}
		samples[i] = math.Exp(rng.NormFloat64())
	}
	_, survival, bottomP, err := EmpiricalSurvival(samples, 50)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range survival {
		if s < -testTolerance || s > 1-bottomP+testTolerance {
			t.Errorf("survival %d = %g is outside [0, %g]", i, s, 1-bottomP)
		}
		if i > 0 && s > survival[i-1]+testTolerance {
			t.Errorf("survival increases from %g to %g at bin %d", survival[i-1], s, i)
		}
	}
	if last := survival[len(survival)-1]; math.Abs(last) > testTolerance {
		t.Errorf("survival in last bin = %g; want 0", last)
	}
}

func TestEmpiricalSurvivalErrors(t *testing.T) {
	for name, samples := range map[string][]float64{
		"negative": {1, -1},
		"NaN":      {math.NaN()},
		"infinite": {0, 1, math.Inf(1)},
		"empty":    nil,
	} {
		if _, _, _, err := EmpiricalSurvival(samples, 10); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, _, _, err := EmpiricalSurvival([]float64{1}, 0); err == nil {
		t.Error("zero bins: expected an error")
	}
}

func TestQuantileExceedanceProbability(t *testing.T) {
	mid := []float64{3, 5, 7}
	survival := []float64{0.4, 0.2, 0}
	tests := []struct {
		threshold, mid, p float64
	}{
		{threshold: 4.2, mid: 5, p: 0.2},
		{threshold: 4, mid: 3, p: 0.4}, // tie goes to the first midpoint
		{threshold: 0.5, mid: 3, p: 0.4},
		{threshold: 100, mid: 7, p: 0},
	}
	for _, test := range tests {
		m, p, err := QuantileExceedanceProbability(mid, survival, test.threshold)
		if err != nil {
			t.Fatal(err)
		}
		if m != test.mid || p != test.p {
			t.Errorf("threshold %g: (%g, %g); want (%g, %g)", test.threshold, m, p, test.mid, test.p)
		}
	}
	if _, _, err := QuantileExceedanceProbability(mid, survival[:2], 1); err == nil {
		t.Error("expected an error for mismatched lengths")
	}
}

func TestSurvivalCurve(t *testing.T) {
	c, err := NewSurvivalCurve([]float64{0, 0, 2, 4, 8}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if p := c.PositiveProbability(); different(p, 0.6, testTolerance) {
		t.Errorf("positive probability = %g; want 0.6", p)
	}
	if different(c.Survival[0], 0.4, testTolerance) {
		t.Errorf("survival at the first midpoint = %g; want 0.4", c.Survival[0])
	}
	if c.Survival[0] > c.PositiveProbability() {
		t.Errorf("survival %g exceeds positive probability %g", c.Survival[0], c.PositiveProbability())
	}
	if c.LogNormal == nil || c.Beta == nil {
		t.Fatal("expected distribution fits")
	}
	for i := range c.Midpoints {
		for _, s := range []float64{c.LogNormalSurvival[i], c.BetaSurvival[i]} {
			if s < -testTolerance || s > 0.6+testTolerance {
				t.Errorf("fitted survival %g at %g is outside [0, 0.6]", s, c.Midpoints[i])
			}
		}
	}
	a := c.array()
	if a.Shape[0] != 4 || a.Shape[1] != 3 {
		t.Fatalf("shape = %v; want [4 3]", a.Shape)
	}
	if a.Get(0, 2) != 7 || a.Get(1, 0) != c.Survival[0] {
		t.Errorf("array = %v", a.Elements)
	}
}

func TestSurvivalCurveNoFit(t *testing.T) {
	c, err := NewSurvivalCurve([]float64{0, 3, 3}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if c.LogNormal != nil || c.Beta != nil {
		t.Error("identical samples should not be fit")
	}
	a := c.array()
	for i := 0; i < 5; i++ {
		if !math.IsNaN(a.Get(2, i)) || !math.IsNaN(a.Get(3, i)) {
			t.Errorf("bin %d: missing fits should be NaN", i)
		}
	}
}

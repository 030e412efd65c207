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

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// C0 returns the normalization reference of concentration field c,
// which is the maximum concentration in the first time step.
// c must have dimensions [time, y, x].
func C0(c *sparse.DenseArray) (float64, error) {
	if err := checkRank("concentration field [time, y, x]", c, 3); err != nil {
		return 0, err
	}
	c0 := floats.Max(c.Elements[:c.Shape[1]*c.Shape[2]])
	if !(c0 > 0) {
		return c0, &DegenerateInputError{C0: c0}
	}
	return c0, nil
}

// Exceedance returns the exceedance indicator of concentration field c,
// which is 1 wherever the concentration is at least mcl times the initial
// peak concentration and 0 elsewhere. The result has the same shape as c.
func Exceedance(c *sparse.DenseArray, mcl float64) (*sparse.DenseArray, error) {
	threshold, err := threshold(c, mcl)
	if err != nil {
		return nil, err
	}
	o := zerosLike(c)
	for i, v := range c.Elements {
		if v >= threshold {
			o.Elements[i] = 1
		}
	}
	return o, nil
}

// Risk returns the risk ratio field of concentration field c: the
// concentration divided by mcl times the initial peak concentration
// wherever the exceedance indicator is 1, and 0 elsewhere. Nonzero values
// are therefore always >= 1.
func Risk(c *sparse.DenseArray, mcl float64) (*sparse.DenseArray, error) {
	threshold, err := threshold(c, mcl)
	if err != nil {
		return nil, err
	}
	o := zerosLike(c)
	for i, v := range c.Elements {
		if v >= threshold {
			o.Elements[i] = v / threshold
		}
	}
	return o, nil
}

// Resilience returns the cumulative exceedance duration at each grid cell:
// the sum over time of exceedance indicator ind, multiplied by
// time step size dt. ind must have dimensions [time, y, x] and the
// result has dimensions [y, x].
func Resilience(ind *sparse.DenseArray, dt float64) (*sparse.DenseArray, error) {
	if err := checkRank("exceedance indicator [time, y, x]", ind, 3); err != nil {
		return nil, err
	}
	nt, ny, nx := ind.Shape[0], ind.Shape[1], ind.Shape[2]
	n := ny * nx
	o := sparse.ZerosDense(ny, nx)
	for t := 0; t < nt; t++ {
		for i, v := range ind.Elements[t*n : (t+1)*n] {
			o.Elements[i] += v
		}
	}
	o.Scale(dt)
	return o, nil
}

// threshold returns the exceedance threshold mcl*c0 of concentration field c.
func threshold(c *sparse.DenseArray, mcl float64) (float64, error) {
	if !(mcl > 0) {
		return 0, fmt.Errorf("ruq: maximum contaminant level fraction %g must be >0", mcl)
	}
	c0, err := C0(c)
	if err != nil {
		return 0, err
	}
	return mcl * c0, nil
}

// checkRank returns an error if a does not have rank dimensions, all of
// them nonzero.
func checkRank(what string, a *sparse.DenseArray, rank int) error {
	if a == nil {
		return &ShapeMismatchError{What: what, Rank: rank}
	}
	if len(a.Shape) != rank {
		return &ShapeMismatchError{What: what, Got: a.Shape, Rank: rank}
	}
	for _, d := range a.Shape {
		if d <= 0 {
			return &ShapeMismatchError{What: what, Got: a.Shape, Rank: rank}
		}
	}
	return nil
}

// zerosLike returns a new zero array with the same shape as a.
func zerosLike(a *sparse.DenseArray) *sparse.DenseArray {
	return sparse.ZerosDense(append([]int(nil), a.Shape...)...)
}

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
	"gonum.org/v1/gonum/stat"
)

// Stack concatenates per-realization fields along a new leading
// realization axis. All fields must have identical shapes.
func Stack(fields ...*sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("ruq: no fields to stack")
	}
	var shape []int
	if fields[0] != nil {
		shape = fields[0].Shape
	}
	for i, f := range fields {
		if f == nil || !sameShape(f.Shape, shape) {
			var got []int
			if f != nil {
				got = f.Shape
			}
			return nil, &ShapeMismatchError{
				What: fmt.Sprintf("realization %d", i),
				Want: shape,
				Got:  got,
			}
		}
	}
	o := sparse.ZerosDense(append([]int{len(fields)}, shape...)...)
	n := len(fields[0].Elements)
	for i, f := range fields {
		copy(o.Elements[i*n:(i+1)*n], f.Elements)
	}
	return o, nil
}

// Unstack returns a copy of realization i of an ensemble stack.
func Unstack(stack *sparse.DenseArray, i int) (*sparse.DenseArray, error) {
	if len(stack.Shape) < 2 {
		return nil, &ShapeMismatchError{What: "ensemble stack", Got: stack.Shape, Rank: 2}
	}
	if i < 0 || i >= stack.Shape[0] {
		return nil, &IndexOutOfRangeError{What: "realization", Index: []int{i}, Shape: stack.Shape[:1]}
	}
	o := sparse.ZerosDense(append([]int(nil), stack.Shape[1:]...)...)
	n := len(o.Elements)
	copy(o.Elements, stack.Elements[i*n:(i+1)*n])
	return o, nil
}

// Mean returns the ensemble mean of a stack along the realization axis.
func Mean(stack *sparse.DenseArray) (*sparse.DenseArray, error) {
	mean, _, err := meanVariance(stack)
	return mean, err
}

// Variance returns the population variance (normalized by the number of
// realizations N, not N-1) of a stack along the realization axis.
func Variance(stack *sparse.DenseArray) (*sparse.DenseArray, error) {
	_, variance, err := meanVariance(stack)
	return variance, err
}

// meanVariance reduces stack along its leading axis.
func meanVariance(stack *sparse.DenseArray) (mean, variance *sparse.DenseArray, err error) {
	if len(stack.Shape) < 2 {
		return nil, nil, &ShapeMismatchError{What: "ensemble stack", Got: stack.Shape, Rank: 2}
	}
	nr := stack.Shape[0]
	shape := stack.Shape[1:]
	mean = sparse.ZerosDense(append([]int(nil), shape...)...)
	variance = sparse.ZerosDense(append([]int(nil), shape...)...)
	n := len(mean.Elements)
	x := make([]float64, nr)
	for i := 0; i < n; i++ {
		for r := 0; r < nr; r++ {
			x[r] = stack.Elements[r*n+i]
		}
		mean.Elements[i], variance.Elements[i] = stat.PopMeanVariance(x, nil)
	}
	return mean, variance, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

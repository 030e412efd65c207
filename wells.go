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
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// WellSeries extracts the concentration time series at each observation
// well from ensemble concentration array all, which has dimensions
// [realization, time, y, x]. The result has dimensions
// [well, realization, time].
func WellSeries(all *sparse.DenseArray, wells []Well) (*sparse.DenseArray, error) {
	if err := checkRank("ensemble concentration [realization, time, y, x]", all, 4); err != nil {
		return nil, err
	}
	nr, nt, ny, nx := all.Shape[0], all.Shape[1], all.Shape[2], all.Shape[3]
	for _, w := range wells {
		if err := w.check(ny, nx); err != nil {
			return nil, err
		}
	}
	o := sparse.ZerosDense(len(wells), nr, nt)
	for iw, w := range wells {
		for r := 0; r < nr; r++ {
			for t := 0; t < nt; t++ {
				o.Set(all.Get(r, t, w.Y, w.X), iw, r, t)
			}
		}
	}
	return o, nil
}

// MaxPerRealization reduces well time series with dimensions
// [well, realization, time] to their maximum over time, with dimensions
// [well, realization].
func MaxPerRealization(series *sparse.DenseArray) (*sparse.DenseArray, error) {
	if err := checkRank("well series [well, realization, time]", series, 3); err != nil {
		return nil, err
	}
	nw, nr, nt := series.Shape[0], series.Shape[1], series.Shape[2]
	o := sparse.ZerosDense(nw, nr)
	for i := range o.Elements {
		o.Elements[i] = floats.Max(series.Elements[i*nt : (i+1)*nt])
	}
	return o, nil
}

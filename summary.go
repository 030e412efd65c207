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

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
)

// MaxRisk returns the maximum of risk ratio field risk, which has
// dimensions [time, y, x], over all time steps within the target region.
func MaxRisk(risk *sparse.DenseArray, target Region) (float64, error) {
	if err := checkRank("risk field [time, y, x]", risk, 3); err != nil {
		return 0, err
	}
	nt, ny, nx := risk.Shape[0], risk.Shape[1], risk.Shape[2]
	if err := target.check("target region", ny, nx); err != nil {
		return 0, err
	}
	max := math.Inf(-1)
	for t := 0; t < nt; t++ {
		if v := regionMax(risk.Elements[t*ny*nx:(t+1)*ny*nx], nx, target); v > max {
			max = v
		}
	}
	return max, nil
}

// MaxResilience returns the maximum of resilience field res, which has
// dimensions [y, x], within the target region.
func MaxResilience(res *sparse.DenseArray, target Region) (float64, error) {
	if err := checkRank("resilience field [y, x]", res, 2); err != nil {
		return 0, err
	}
	if err := target.check("target region", res.Shape[0], res.Shape[1]); err != nil {
		return 0, err
	}
	return regionMax(res.Elements, res.Shape[1], target), nil
}

// Eta returns the flow-normalized transport index of a realization:
// the mean of flow velocity grid flow ([y, x]) along column source.XU for
// rows [source.YL, source.YU), divided by (1/lx)*exp(log(kg)), where lx is
// the domain length in grid cells and kg is the geometric mean permeability.
// The trend lines in TrendLines assume exactly this normalization.
func Eta(flow *sparse.DenseArray, source Region, lx, kg float64) (float64, error) {
	if err := checkRank("flow velocity grid [y, x]", flow, 2); err != nil {
		return 0, err
	}
	ny, nx := flow.Shape[0], flow.Shape[1]
	if err := source.check("source region", ny, nx); err != nil {
		return 0, err
	}
	if source.XU >= nx {
		return 0, &IndexOutOfRangeError{What: "source region x upper bound", Index: []int{source.XU}, Shape: []int{nx}}
	}
	col := make([]float64, 0, source.YU-source.YL)
	for j := source.YL; j < source.YU; j++ {
		col = append(col, flow.Elements[j*nx+source.XU])
	}
	return stat.Mean(col, nil) / (1 / lx * math.Exp(math.Log(kg))), nil
}

// regionMax returns the maximum of the [y, x] slab e (with nx columns)
// within region r.
func regionMax(e []float64, nx int, r Region) float64 {
	max := math.Inf(-1)
	for j := r.YL; j < r.YU; j++ {
		for _, v := range e[j*nx+r.XL : j*nx+r.XU] {
			if v > max {
				max = v
			}
		}
	}
	return max
}

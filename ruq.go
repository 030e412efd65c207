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

// Package ruq post-processes ensembles of groundwater contaminant transport
// simulations into risk and resilience metrics. Concentration fields
// for each realization of a stochastic permeability field are reduced to
// exceedance indicators, ensemble mean and variance fields, per-realization
// scalar summaries within a target zone, and survival probability curves
// of the maximum concentration at observation wells.
package ruq

import "fmt"

// Version gives the version number.
const Version = "0.1.0"

// Region is an axis-aligned rectangle of grid cells. Lower bounds are
// inclusive and upper bounds are exclusive, so the region covers
// rows [YL, YU) and columns [XL, XU).
type Region struct {
	XL, XU, YL, YU int
}

// Well is the grid location of an observation well. X is the column
// index and Y is the row index.
type Well struct {
	X, Y int
}

// StudyConfig holds the fixed parameters of a study. It is passed by value
// to every stage and is never modified once it has been validated.
type StudyConfig struct {
	// NRealization is the number of realizations in the ensemble.
	NRealization int

	// Kg is the geometric mean permeability of the ensemble.
	Kg float64

	// Lx and Ly are the number of grid cells in the x and y directions.
	Lx, Ly int

	// LambdaX and LambdaY are the correlation lengths of the permeability
	// field, in grid cells. They are used to express locations in units of
	// correlation length when rendering.
	LambdaX, LambdaY int

	// Source is the contaminant source zone and Target is the zone
	// where risk and resilience are evaluated.
	Source, Target Region

	// MCL is the maximum contaminant level, expressed as a fraction of
	// the initial peak concentration.
	MCL float64

	// Wells are the observation well locations.
	Wells []Well

	// Dt is the time step size of the concentration fields.
	Dt float64

	// Bins is the number of histogram bins used for survival curves.
	Bins int
}

// Validate checks that the configuration is internally consistent.
func (c StudyConfig) Validate() error {
	if c.NRealization <= 0 {
		return fmt.Errorf("ruq: NRealization=%d but should be >0", c.NRealization)
	}
	if c.Lx <= 0 || c.Ly <= 0 {
		return fmt.Errorf("ruq: grid dimensions Lx=%d, Ly=%d should be >0", c.Lx, c.Ly)
	}
	vars := []float64{c.Kg, c.MCL, c.Dt}
	varNames := []string{"Kg", "MCL", "Dt"}
	for i, v := range vars {
		if !(v > 0) {
			return fmt.Errorf("ruq: %s=%g but should be >0", varNames[i], v)
		}
	}
	if c.LambdaX <= 0 || c.LambdaY <= 0 {
		return fmt.Errorf("ruq: correlation lengths LambdaX=%d, LambdaY=%d should be >0", c.LambdaX, c.LambdaY)
	}
	if c.Bins <= 0 {
		return fmt.Errorf("ruq: Bins=%d but should be >0", c.Bins)
	}
	if err := c.Target.check("target region", c.Ly, c.Lx); err != nil {
		return err
	}
	if err := c.Source.check("source region", c.Ly, c.Lx); err != nil {
		return err
	}
	// Eta reads the column at the source's upper x bound.
	if c.Source.XU >= c.Lx {
		return &IndexOutOfRangeError{What: "source region x upper bound", Index: []int{c.Source.XU}, Shape: []int{c.Lx}}
	}
	for _, w := range c.Wells {
		if err := w.check(c.Ly, c.Lx); err != nil {
			return err
		}
	}
	return nil
}

// check returns an error if the region is empty or does not fit
// in a grid with ny rows and nx columns.
func (r Region) check(what string, ny, nx int) error {
	if r.XL < 0 || r.YL < 0 || r.XU > nx || r.YU > ny || r.XL >= r.XU || r.YL >= r.YU {
		return &IndexOutOfRangeError{
			What:  what,
			Index: []int{r.YL, r.YU, r.XL, r.XU},
			Shape: []int{ny, nx},
		}
	}
	return nil
}

func (w Well) check(ny, nx int) error {
	if w.X < 0 || w.Y < 0 || w.X >= nx || w.Y >= ny {
		return &IndexOutOfRangeError{
			What:  "observation well",
			Index: []int{w.Y, w.X},
			Shape: []int{ny, nx},
		}
	}
	return nil
}

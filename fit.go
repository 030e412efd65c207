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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxFitEvaluations limits the number of likelihood evaluations in each
// distribution fit.
const maxFitEvaluations = 10000

// minLogPad is the log of the smallest distance, relative to the sample
// range, between the samples and either end of a fitted beta support.
var minLogPad = math.Log(1e-4)

// LogNormalFit is a three-parameter log-normal distribution: log(x-Loc)
// is normally distributed with standard deviation Shape and mean
// log(Scale).
type LogNormalFit struct {
	Shape, Loc, Scale float64
}

// CDF returns the cumulative probability at x.
func (f LogNormalFit) CDF(x float64) float64 {
	z := x - f.Loc
	if z <= 0 {
		return 0
	}
	return distuv.LogNormal{Mu: math.Log(f.Scale), Sigma: f.Shape}.CDF(z)
}

// logProb returns the log density at x, or -Inf where it is not defined.
func (f LogNormalFit) logProb(x float64) float64 {
	z := x - f.Loc
	if z <= 0 || !(f.Shape > 0) || !(f.Scale > 0) || math.IsInf(f.Shape, 1) {
		return math.Inf(-1)
	}
	return distuv.LogNormal{Mu: math.Log(f.Scale), Sigma: f.Shape}.LogProb(z)
}

// BetaFit is a four-parameter beta distribution: (x-Loc)/Scale is beta
// distributed with shape parameters Alpha and Beta.
type BetaFit struct {
	Alpha, Beta, Loc, Scale float64
}

// CDF returns the cumulative probability at x.
func (f BetaFit) CDF(x float64) float64 {
	z := (x - f.Loc) / f.Scale
	switch {
	case z <= 0:
		return 0
	case z >= 1:
		return 1
	}
	return distuv.Beta{Alpha: f.Alpha, Beta: f.Beta}.CDF(z)
}

func (f BetaFit) logProb(x float64) float64 {
	if !(f.Alpha > 0) || !(f.Beta > 0) || !(f.Scale > 0) ||
		math.IsInf(f.Alpha, 1) || math.IsInf(f.Beta, 1) {
		return math.Inf(-1)
	}
	z := (x - f.Loc) / f.Scale
	if z <= 0 || z >= 1 {
		return math.Inf(-1)
	}
	return distuv.Beta{Alpha: f.Alpha, Beta: f.Beta}.LogProb(z) - math.Log(f.Scale)
}

// FitLogNormal fits a three-parameter log-normal distribution to
// positive samples x by maximum likelihood.
func FitLogNormal(x []float64) (LogNormalFit, error) {
	lo, hi, err := fitRange(x)
	if err != nil {
		return LogNormalFit{}, err
	}
	// Parameters are log(Shape), log(Scale) and log(lo-Loc), which keeps
	// Shape and Scale positive and Loc below the smallest sample.
	decode := func(p []float64) LogNormalFit {
		return LogNormalFit{Shape: math.Exp(p[0]), Scale: math.Exp(p[1]), Loc: lo - math.Exp(p[2])}
	}
	logx := make([]float64, len(x))
	for i, v := range x {
		logx[i] = math.Log(v)
	}
	mu, variance := stat.PopMeanVariance(logx, nil)
	sigma := math.Sqrt(variance)
	if !(sigma > 0) {
		sigma = (math.Log(hi) - math.Log(lo)) / 2
	}
	// Start from the two-parameter fit, with Loc at zero.
	x0 := []float64{math.Log(sigma), mu, math.Log(lo)}
	p, err := minimizeNLL(x0, func(p []float64) float64 {
		f := decode(p)
		var nll float64
		for _, v := range x {
			nll -= f.logProb(v)
		}
		return nll
	})
	if err != nil {
		return LogNormalFit{}, fmt.Errorf("ruq: fitting log-normal distribution: %w", err)
	}
	return decode(p), nil
}

// FitBeta fits a four-parameter beta distribution to positive samples x
// by maximum likelihood.
func FitBeta(x []float64) (BetaFit, error) {
	lo, hi, err := fitRange(x)
	if err != nil {
		return BetaFit{}, err
	}
	span := hi - lo
	// Parameters are log(Alpha), log(Beta), log((lo-Loc)/span) and
	// log((Loc+Scale-hi)/span), which keep the support strictly around
	// the samples.
	decode := func(p []float64) BetaFit {
		loc := lo - span*math.Exp(p[2])
		return BetaFit{
			Alpha: math.Exp(p[0]),
			Beta:  math.Exp(p[1]),
			Loc:   loc,
			Scale: hi - loc + span*math.Exp(p[3]),
		}
	}
	const pad = 0.05
	loc0, scale0 := lo-pad*span, span*(1+2*pad)
	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = (v - loc0) / scale0
	}
	// Method of moments starting point.
	m, s2 := stat.PopMeanVariance(z, nil)
	a0, b0 := 1., 1.
	if common := m*(1-m)/s2 - 1; common > 0 {
		a0, b0 = m*common, (1-m)*common
	}
	x0 := []float64{math.Log(a0), math.Log(b0), math.Log(pad), math.Log(pad)}
	p, err := minimizeNLL(x0, func(p []float64) float64 {
		// The likelihood is unbounded as the support closes in on the
		// samples, so the padding is bounded below.
		if p[2] < minLogPad || p[3] < minLogPad {
			return math.Inf(1)
		}
		f := decode(p)
		var nll float64
		for _, v := range x {
			nll -= f.logProb(v)
		}
		return nll
	})
	if err != nil {
		return BetaFit{}, fmt.Errorf("ruq: fitting beta distribution: %w", err)
	}
	return decode(p), nil
}

// fitRange checks that x holds at least two distinct positive finite
// values and returns its range.
func fitRange(x []float64) (lo, hi float64, err error) {
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("ruq: %d samples is too few to fit a distribution", len(x))
	}
	for _, v := range x {
		if !(v > 0) || math.IsInf(v, 1) {
			return 0, 0, fmt.Errorf("ruq: distribution fit samples must be positive and finite, got %g", v)
		}
	}
	lo, hi = floats.Min(x), floats.Max(x)
	if lo == hi {
		return 0, 0, fmt.Errorf("ruq: cannot fit a distribution to identical samples (%g)", lo)
	}
	return lo, hi, nil
}

// minimizeNLL minimizes negative log likelihood nll with the Nelder-Mead
// method starting from x0. It returns x0 if the minimization does not
// improve on it.
func minimizeNLL(x0 []float64, nll func([]float64) float64) ([]float64, error) {
	f0 := nll(x0)
	if math.IsNaN(f0) || math.IsInf(f0, 0) {
		return nil, fmt.Errorf("likelihood is not finite at starting point %v", x0)
	}
	problem := optimize.Problem{Func: func(p []float64) float64 {
		v := nll(p)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}}
	settings := &optimize.Settings{FuncEvaluations: maxFitEvaluations}
	// Minimize also returns an error when it stops at the evaluation
	// limit, in which case the best point found so far is still used.
	result, _ := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil || !(result.F < f0) {
		return x0, nil
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return x0, nil
		}
	}
	return result.X, nil
}

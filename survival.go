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
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EmpiricalSurvival returns the empirical survival function (1 - CDF) of
// non-negative samples evaluated at the midpoints of a histogram with the
// given number of bins.
//
// Samples that are exactly zero (for example concentrations below
// detection) are treated as a point mass at zero: bottomP is the fraction
// of zero samples, and the density histogram of the strictly positive
// samples, which spans their range with equal-width bins, is rescaled so
// that CDF = CDF_positive*(1-bottomP) + bottomP. If all samples are zero,
// bottomP is 1 and survival is zero everywhere; the midpoints then span
// [0, 1].
func EmpiricalSurvival(samples []float64, bins int) (midpoints, survival []float64, bottomP float64, err error) {
	if bins < 1 {
		return nil, nil, 0, fmt.Errorf("ruq: number of histogram bins is %d but should be >0", bins)
	}
	if len(samples) == 0 {
		return nil, nil, 0, fmt.Errorf("ruq: no samples for survival function")
	}
	positive, zeros, err := splitZeros(samples)
	if err != nil {
		return nil, nil, 0, err
	}
	bottomP = float64(zeros) / float64(len(samples))

	lo, hi := 0., 1.
	if len(positive) > 0 {
		lo, hi = floats.Min(positive), floats.Max(positive)
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = hi
	midpoints = make([]float64, bins)
	for i := range midpoints {
		midpoints[i] = (dividers[i] + dividers[i+1]) / 2
	}
	survival = make([]float64, bins)
	if len(positive) == 0 {
		return midpoints, survival, bottomP, nil
	}

	sort.Float64s(positive)
	// The last bin is closed on the right.
	edges := append([]float64(nil), dividers...)
	edges[bins] = math.Nextafter(hi, math.Inf(1))
	count := stat.Histogram(nil, edges, positive, nil)

	dx := dividers[1] - dividers[0]
	n := float64(len(positive))
	var cum float64
	for i, c := range count {
		cum += c / (n * dx) // density
		cdf := cum * dx
		survival[i] = 1 - (cdf*(1-bottomP) + bottomP)
	}
	return midpoints, survival, bottomP, nil
}

// QuantileExceedanceProbability returns the survival probability at the
// midpoint nearest to threshold, along with that midpoint. It is a
// nearest-bin lookup, not an inverse-CDF evaluation, so its accuracy is
// limited by the bin width. Ties go to the lower midpoint.
func QuantileExceedanceProbability(midpoints, survival []float64, threshold float64) (midpoint, probability float64, err error) {
	if len(midpoints) == 0 || len(midpoints) != len(survival) {
		return 0, 0, fmt.Errorf("ruq: %d midpoints and %d survival probabilities", len(midpoints), len(survival))
	}
	best := 0
	for i, m := range midpoints {
		if math.Abs(m-threshold) < math.Abs(midpoints[best]-threshold) {
			best = i
		}
	}
	return midpoints[best], survival[best], nil
}

// SurvivalCurve holds the empirical survival function of the maximum
// concentration at an observation well, along with log-normal and beta
// distributions fit to the nonzero samples and evaluated at the same
// midpoints with the same treatment of the point mass at zero.
type SurvivalCurve struct {
	Midpoints []float64
	Survival  []float64
	BottomP   float64

	// LogNormal and Beta are nil when there are fewer than two distinct
	// nonzero samples to fit.
	LogNormal *LogNormalFit
	Beta      *BetaFit

	LogNormalSurvival []float64
	BetaSurvival      []float64
}

// NewSurvivalCurve calculates the empirical survival function of samples
// and fits parametric distributions to the nonzero samples.
func NewSurvivalCurve(samples []float64, bins int) (*SurvivalCurve, error) {
	mid, surv, bottomP, err := EmpiricalSurvival(samples, bins)
	if err != nil {
		return nil, err
	}
	c := &SurvivalCurve{Midpoints: mid, Survival: surv, BottomP: bottomP}
	positive, _, _ := splitZeros(samples)
	if len(positive) < 2 || floats.Min(positive) == floats.Max(positive) {
		return c, nil
	}
	ln, err := FitLogNormal(positive)
	if err != nil {
		return nil, err
	}
	b, err := FitBeta(positive)
	if err != nil {
		return nil, err
	}
	c.LogNormal, c.Beta = &ln, &b
	c.LogNormalSurvival = c.Fit(ln.CDF)
	c.BetaSurvival = c.Fit(b.CDF)
	return c, nil
}

// Fit evaluates cumulative distribution function cdf of the nonzero part
// of the distribution at the curve midpoints and returns the corresponding
// survival probabilities, rescaled with the curve's point mass at zero.
func (c *SurvivalCurve) Fit(cdf func(float64) float64) []float64 {
	o := make([]float64, len(c.Midpoints))
	for i, m := range c.Midpoints {
		o[i] = 1 - (cdf(m)*(1-c.BottomP) + c.BottomP)
	}
	return o
}

// PositiveProbability returns the probability that a sample is nonzero,
// which is the limit of the survival function just above zero.
func (c *SurvivalCurve) PositiveProbability() float64 {
	return 1 - c.BottomP
}

// ExceedanceProbability is QuantileExceedanceProbability for the
// empirical curve.
func (c *SurvivalCurve) ExceedanceProbability(threshold float64) (midpoint, probability float64, err error) {
	return QuantileExceedanceProbability(c.Midpoints, c.Survival, threshold)
}

// splitZeros returns a copy of the strictly positive samples and the number
// of samples that are exactly zero.
func splitZeros(samples []float64) (positive []float64, zeros int, err error) {
	for _, v := range samples {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 1) || v < 0:
			return nil, 0, fmt.Errorf("ruq: survival samples must be finite and non-negative, got %g", v)
		case v == 0:
			zeros++
		default:
			positive = append(positive, v)
		}
	}
	return positive, zeros, nil
}

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

	"github.com/GaryBoone/GoStats/stats"
	"github.com/Knetic/govaluate"
	"gonum.org/v1/gonum/floats"
)

// TrendLines holds empirical expressions for risk and resilience as a
// function of the transport index eta. Expressions may use the variable
// eta and the functions exp, log and erf.
type TrendLines struct {
	Risk, Resilience string
}

// DefaultTrendLines are the calibrated trend lines for maximum risk and
// maximum resilience in the target zone.
var DefaultTrendLines = TrendLines{
	Risk:       "293.798518*erf(2.375823*eta) + 449.030143",
	Resilience: "292.155804 - 125.685574*log(eta)",
}

var trendFunctions = map[string]govaluate.ExpressionFunction{
	"exp": unaryFunction("exp", math.Exp),
	"log": unaryFunction("log", math.Log),
	"erf": unaryFunction("erf", math.Erf),
}

func unaryFunction(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("ruq: %s takes 1 argument but got %d", name, len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ruq: %s argument %v is not a number", name, args[0])
		}
		return f(v), nil
	}
}

// Evaluate evaluates both trend lines at each value of eta.
func (t TrendLines) Evaluate(eta []float64) (risk, resilience []float64, err error) {
	risk, err = evaluateTrend(t.Risk, eta)
	if err != nil {
		return nil, nil, fmt.Errorf("ruq: risk trend line: %w", err)
	}
	resilience, err = evaluateTrend(t.Resilience, eta)
	if err != nil {
		return nil, nil, fmt.Errorf("ruq: resilience trend line: %w", err)
	}
	return risk, resilience, nil
}

// Curve samples both trend lines at n evenly spaced values of eta from
// zero to etaMax rounded up to the nearest integer. Values where a trend
// line is undefined, such as log(0), are non-finite.
func (t TrendLines) Curve(n int, etaMax float64) (eta, risk, resilience []float64, err error) {
	if n < 2 {
		return nil, nil, nil, fmt.Errorf("ruq: trend curve needs at least 2 points, got %d", n)
	}
	eta = floats.Span(make([]float64, n), 0, math.Ceil(etaMax))
	risk, resilience, err = t.Evaluate(eta)
	return eta, risk, resilience, err
}

func evaluateTrend(expression string, eta []float64) ([]float64, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, trendFunctions)
	if err != nil {
		return nil, err
	}
	o := make([]float64, len(eta))
	params := make(map[string]interface{}, 1)
	for i, e := range eta {
		params["eta"] = e
		v, err := expr.Evaluate(params)
		if err != nil {
			return nil, err
		}
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expression %q returned %v, not a number", expression, v)
		}
		o[i] = f
	}
	return o, nil
}

// LogTrend is a fitted trend line y = A + B*log(eta).
type LogTrend struct {
	A, B     float64
	RSquared float64
}

// FitLogTrend fits y = A + B*log(eta) by linear regression on log(eta).
// Points with non-positive eta are ignored.
func FitLogTrend(eta, y []float64) (LogTrend, error) {
	if len(eta) != len(y) {
		return LogTrend{}, fmt.Errorf("ruq: %d eta values but %d trend values", len(eta), len(y))
	}
	var x, yy []float64
	for i, e := range eta {
		if e > 0 {
			x = append(x, math.Log(e))
			yy = append(yy, y[i])
		}
	}
	if len(x) < 2 {
		return LogTrend{}, fmt.Errorf("ruq: %d positive eta values is too few to fit a trend", len(x))
	}
	slope, intercept, r2, _, _, _ := stats.LinearRegression(x, yy)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return LogTrend{}, fmt.Errorf("ruq: eta values are all equal; cannot fit a trend")
	}
	return LogTrend{A: intercept, B: slope, RSquared: r2}, nil
}

// At evaluates the trend at eta.
func (l LogTrend) At(eta float64) float64 {
	return l.A + l.B*math.Log(eta)
}

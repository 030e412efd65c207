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

package ruqutil

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/ruq"
)

// SurvivalReport holds the survival analysis of the maximum
// concentration at each observation well.
type SurvivalReport struct {
	// MCL is the threshold at which exceedance probabilities are reported.
	MCL   float64
	Wells []WellSurvival
}

// WellSurvival holds the survival curve of the maximum concentration at
// one observation well.
type WellSurvival struct {
	X, Y int

	// PositiveProbability is the fraction of realizations in which
	// contaminant reaches the well.
	PositiveProbability float64

	// ExceedanceProbability is the survival probability in the bin
	// nearest to the MCL, whose midpoint is ThresholdMidpoint.
	ThresholdMidpoint     float64
	ExceedanceProbability float64

	Midpoints []float64
	Survival  []float64

	LogNormal         *ruq.LogNormalFit `toml:",omitempty"`
	LogNormalSurvival []float64         `toml:",omitempty"`
	Beta              *ruq.BetaFit      `toml:",omitempty"`
	BetaSurvival      []float64         `toml:",omitempty"`
}

// NewSurvivalReport summarizes the survival curves of the observation wells
// in cfg.
func NewSurvivalReport(cfg ruq.StudyConfig, curves []*ruq.SurvivalCurve) (*SurvivalReport, error) {
	if len(curves) != len(cfg.Wells) {
		return nil, fmt.Errorf("ruq: %d survival curves for %d observation wells", len(curves), len(cfg.Wells))
	}
	r := &SurvivalReport{MCL: cfg.MCL}
	for i, c := range curves {
		mid, prob, err := c.ExceedanceProbability(cfg.MCL)
		if err != nil {
			return nil, err
		}
		r.Wells = append(r.Wells, WellSurvival{
			X:                     cfg.Wells[i].X,
			Y:                     cfg.Wells[i].Y,
			PositiveProbability:   c.PositiveProbability(),
			ThresholdMidpoint:     mid,
			ExceedanceProbability: prob,
			Midpoints:             c.Midpoints,
			Survival:              c.Survival,
			LogNormal:             c.LogNormal,
			LogNormalSurvival:     c.LogNormalSurvival,
			Beta:                  c.Beta,
			BetaSurvival:          c.BetaSurvival,
		})
	}
	return r, nil
}

// Survival runs the survival analysis and writes a SurvivalReport to
// reportFile in the TOML format.
func Survival(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig, reportFile string) error {
	curves, err := p.Survival(ctx, cfg)
	if err != nil {
		return err
	}
	r, err := NewSurvivalReport(cfg, curves)
	if err != nil {
		return err
	}
	return writeTOML(reportFile, r)
}

// TrendReport holds trend lines evaluated over the range of the transport
// index, together with the realizations they describe.
type TrendReport struct {
	Risk, Resilience string

	// Realizations holds [eta, maximum risk, maximum resilience] for each
	// realization with finite values.
	Realizations [][3]float64

	// RiskCurve and ResilienceCurve hold [eta, value] points of the
	// trend lines where they are finite.
	RiskCurve, ResilienceCurve [][2]float64

	// Refit is the resilience trend refitted to the realizations.
	Refit struct {
		A, B     float64
		RSquared *float64 `toml:",omitempty"`
	}
}

// NewTrendReport summarizes the evaluated trend lines t.
func NewTrendReport(t ruq.TrendLines, r *ruq.TrendResult) *TrendReport {
	o := &TrendReport{Risk: t.Risk, Resilience: t.Resilience}
	for i, eta := range r.Eta {
		p := [3]float64{eta, r.MaxRisk[i], r.MaxResilience[i]}
		if finite(p[:]...) {
			o.Realizations = append(o.Realizations, p)
		}
	}
	for i, eta := range r.CurveEta {
		if finite(eta, r.CurveRisk[i]) {
			o.RiskCurve = append(o.RiskCurve, [2]float64{eta, r.CurveRisk[i]})
		}
		if finite(eta, r.CurveResilience[i]) {
			o.ResilienceCurve = append(o.ResilienceCurve, [2]float64{eta, r.CurveResilience[i]})
		}
	}
	o.Refit.A, o.Refit.B = r.Resilience.A, r.Resilience.B
	if r2 := r.Resilience.RSquared; finite(r2) {
		o.Refit.RSquared = &r2
	}
	return o
}

// Trend evaluates trend lines t and writes a TrendReport to reportFile
// in the TOML format.
func Trend(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig, t ruq.TrendLines, reportFile string) error {
	r, err := p.Trend(ctx, cfg, t)
	if err != nil {
		return err
	}
	return writeTOML(reportFile, NewTrendReport(t, r))
}

func finite(v ...float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func writeTOML(file string, v interface{}) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("ruq: creating report: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("ruq: writing report %s: %v", file, err)
	}
	return f.Close()
}

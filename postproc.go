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
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Postprocessor runs the post-processing stages of a study. Each stage
// loads its inputs from Store, computes all of its outputs, and only then
// saves them, so a failed stage never leaves a partial set of results.
type Postprocessor struct {
	Store FieldStore

	// Log receives progress messages. If it is nil, the standard
	// logrus logger is used.
	Log logrus.FieldLogger
}

func (p *Postprocessor) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

// artifact is an array waiting to be saved.
type artifact struct {
	key  string
	data *sparse.DenseArray
}

func (p *Postprocessor) saveAll(ctx context.Context, artifacts ...artifact) error {
	for _, a := range artifacts {
		if err := p.Store.Save(ctx, a.key, a.data); err != nil {
			return fmt.Errorf("ruq: saving %s: %w", a.key, err)
		}
	}
	return nil
}

// loadRealizations loads the per-realization arrays with keys key(i)
// for every realization and checks that their trailing dimensions are
// [cfg.Ly, cfg.Lx].
func (p *Postprocessor) loadRealizations(ctx context.Context, cfg StudyConfig, key func(int) string, rank int) ([]*sparse.DenseArray, error) {
	fields := make([]*sparse.DenseArray, cfg.NRealization)
	for i := range fields {
		f, err := p.Store.Load(ctx, key(i))
		if err != nil {
			return nil, err
		}
		if err := checkRank(key(i), f, rank); err != nil {
			return nil, err
		}
		if grid := f.Shape[rank-2:]; grid[0] != cfg.Ly || grid[1] != cfg.Lx {
			return nil, &ShapeMismatchError{What: key(i) + " grid", Want: []int{cfg.Ly, cfg.Lx}, Got: grid}
		}
		fields[i] = f
	}
	return fields, nil
}

// Concentration stacks the concentration fields of all realizations into
// a single [realization, time, y, x] array and calculates its ensemble
// mean and variance.
func (p *Postprocessor) Concentration(ctx context.Context, cfg StudyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	fields, err := p.loadRealizations(ctx, cfg, KeyConcentration, 3)
	if err != nil {
		return err
	}
	all, err := Stack(fields...)
	if err != nil {
		return err
	}
	mean, variance, err := meanVariance(all)
	if err != nil {
		return err
	}
	p.log().WithFields(logrus.Fields{
		"realizations": cfg.NRealization,
		"shape":        all.Shape,
	}).Info("stacked concentration fields")
	return p.saveAll(ctx,
		artifact{KeyConcentrationAll, all},
		artifact{KeyConcentrationMean, mean},
		artifact{KeyConcentrationVariance, variance},
	)
}

// RiskResilience calculates the exceedance indicator, risk ratio field and
// resilience field of every realization, along with the ensemble
// probability of exceedance and ensemble resilience and their variances.
func (p *Postprocessor) RiskResilience(ctx context.Context, cfg StudyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	all, err := p.loadEnsemble(ctx, cfg)
	if err != nil {
		return err
	}
	var out []artifact
	indicators := make([]*sparse.DenseArray, cfg.NRealization)
	resiliences := make([]*sparse.DenseArray, cfg.NRealization)
	for i := 0; i < cfg.NRealization; i++ {
		c, err := Unstack(all, i)
		if err != nil {
			return err
		}
		ind, err := Exceedance(c, cfg.MCL)
		if err != nil {
			return fmt.Errorf("ruq: realization %d: %w", i, err)
		}
		risk, err := Risk(c, cfg.MCL)
		if err != nil {
			return fmt.Errorf("ruq: realization %d: %w", i, err)
		}
		res, err := Resilience(ind, cfg.Dt)
		if err != nil {
			return fmt.Errorf("ruq: realization %d: %w", i, err)
		}
		indicators[i], resiliences[i] = ind, res
		out = append(out,
			artifact{KeyExceedance(i), ind},
			artifact{KeyRisk(i), risk},
			artifact{KeyResilience(i), res},
		)
	}
	reliability, err := Stack(indicators...)
	if err != nil {
		return err
	}
	resilience, err := Stack(resiliences...)
	if err != nil {
		return err
	}
	riskMean, riskVar, err := meanVariance(reliability)
	if err != nil {
		return err
	}
	resMean, resVar, err := meanVariance(resilience)
	if err != nil {
		return err
	}
	p.log().WithFields(logrus.Fields{
		"realizations":        cfg.NRealization,
		"mcl":                 cfg.MCL,
		"max mean exceedance": floats.Max(riskMean.Elements),
		"max mean resilience": floats.Max(resMean.Elements),
	}).Info("calculated risk and resilience fields")
	out = append(out,
		artifact{KeyReliability, reliability},
		artifact{KeyRiskMean, riskMean},
		artifact{KeyRiskVariance, riskVar},
		artifact{KeyResilienceAll, resilience},
		artifact{KeyResilienceMean, resMean},
		artifact{KeyResilienceVariance, resVar},
	)
	return p.saveAll(ctx, out...)
}

// loadEnsemble loads the stacked concentration fields and checks their
// shape against cfg.
func (p *Postprocessor) loadEnsemble(ctx context.Context, cfg StudyConfig) (*sparse.DenseArray, error) {
	all, err := p.Store.Load(ctx, KeyConcentrationAll)
	if err != nil {
		return nil, err
	}
	if err := checkRank(KeyConcentrationAll, all, 4); err != nil {
		return nil, err
	}
	if all.Shape[0] != cfg.NRealization || all.Shape[2] != cfg.Ly || all.Shape[3] != cfg.Lx {
		return nil, &ShapeMismatchError{
			What: KeyConcentrationAll,
			Want: []int{cfg.NRealization, all.Shape[1], cfg.Ly, cfg.Lx},
			Got:  all.Shape,
		}
	}
	return all, nil
}

// Eta stacks the flow velocity grids of all realizations and calculates
// the transport index of each one.
func (p *Postprocessor) Eta(ctx context.Context, cfg StudyConfig) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	flows, err := p.loadRealizations(ctx, cfg, KeyFlow, 2)
	if err != nil {
		return nil, err
	}
	sflow, err := Stack(flows...)
	if err != nil {
		return nil, err
	}
	eta := sparse.ZerosDense(cfg.NRealization)
	for i, f := range flows {
		if eta.Elements[i], err = Eta(f, cfg.Source, float64(cfg.Lx), cfg.Kg); err != nil {
			return nil, fmt.Errorf("ruq: realization %d: %w", i, err)
		}
	}
	p.log().WithFields(logrus.Fields{
		"realizations": cfg.NRealization,
		"min eta":      floats.Min(eta.Elements),
		"max eta":      floats.Max(eta.Elements),
	}).Info("calculated transport index")
	if err := p.saveAll(ctx, artifact{KeyFlowAll, sflow}, artifact{KeyEta, eta}); err != nil {
		return nil, err
	}
	return eta.Elements, nil
}

// MaxRiskResilience calculates the maximum risk ratio and the maximum
// resilience within the target region for every realization.
func (p *Postprocessor) MaxRiskResilience(ctx context.Context, cfg StudyConfig) (maxRisk, maxResilience []float64, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	all, err := p.loadEnsemble(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	resilience, err := p.Store.Load(ctx, KeyResilienceAll)
	if err != nil {
		return nil, nil, err
	}
	mr := sparse.ZerosDense(cfg.NRealization)
	mres := sparse.ZerosDense(cfg.NRealization)
	for i := 0; i < cfg.NRealization; i++ {
		c, err := Unstack(all, i)
		if err != nil {
			return nil, nil, err
		}
		risk, err := Risk(c, cfg.MCL)
		if err != nil {
			return nil, nil, fmt.Errorf("ruq: realization %d: %w", i, err)
		}
		if mr.Elements[i], err = MaxRisk(risk, cfg.Target); err != nil {
			return nil, nil, err
		}
		res, err := Unstack(resilience, i)
		if err != nil {
			return nil, nil, err
		}
		if mres.Elements[i], err = MaxResilience(res, cfg.Target); err != nil {
			return nil, nil, err
		}
	}
	p.log().WithFields(logrus.Fields{
		"realizations":   cfg.NRealization,
		"max risk":       floats.Max(mr.Elements),
		"max resilience": floats.Max(mres.Elements),
	}).Info("calculated maximum risk and resilience in target region")
	if err := p.saveAll(ctx, artifact{KeyMaxRisk, mr}, artifact{KeyMaxResilience, mres}); err != nil {
		return nil, nil, err
	}
	return mr.Elements, mres.Elements, nil
}

// Wells extracts the maximum concentration over time at each observation
// well for every realization. The result has dimensions
// [well, realization].
func (p *Postprocessor) Wells(ctx context.Context, cfg StudyConfig) (*sparse.DenseArray, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Wells) == 0 {
		return nil, fmt.Errorf("ruq: no observation wells are configured")
	}
	all, err := p.loadEnsemble(ctx, cfg)
	if err != nil {
		return nil, err
	}
	series, err := WellSeries(all, cfg.Wells)
	if err != nil {
		return nil, err
	}
	maxConc, err := MaxPerRealization(series)
	if err != nil {
		return nil, err
	}
	p.log().WithFields(logrus.Fields{
		"wells":        len(cfg.Wells),
		"realizations": cfg.NRealization,
	}).Info("extracted observation well concentrations")
	if err := p.saveAll(ctx, artifact{KeyWellMaxConcentration, maxConc}); err != nil {
		return nil, err
	}
	return maxConc, nil
}

// SurvivalCurves calculates the survival curve of the maximum
// concentration at each observation well without saving anything.
func (p *Postprocessor) SurvivalCurves(ctx context.Context, cfg StudyConfig) ([]*SurvivalCurve, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxConc, err := p.Store.Load(ctx, KeyWellMaxConcentration)
	if err != nil {
		return nil, err
	}
	if err := checkRank(KeyWellMaxConcentration, maxConc, 2); err != nil {
		return nil, err
	}
	nw, nr := maxConc.Shape[0], maxConc.Shape[1]
	curves := make([]*SurvivalCurve, nw)
	for i := range curves {
		c, err := NewSurvivalCurve(maxConc.Elements[i*nr:(i+1)*nr], cfg.Bins)
		if err != nil {
			return nil, fmt.Errorf("ruq: observation well %d: %w", i, err)
		}
		curves[i] = c
	}
	return curves, nil
}

// Survival calculates the survival curve of the maximum concentration at
// each observation well. Each curve is saved as a [4, bins] array whose
// rows are the midpoints, the empirical survival probabilities, and the
// log-normal and beta fits, which are NaN where no fit was possible.
func (p *Postprocessor) Survival(ctx context.Context, cfg StudyConfig) ([]*SurvivalCurve, error) {
	curves, err := p.SurvivalCurves(ctx, cfg)
	if err != nil {
		return nil, err
	}
	out := make([]artifact, len(curves))
	for i, c := range curves {
		out[i] = artifact{KeySurvival(i), c.array()}

		mid, prob, err := c.ExceedanceProbability(cfg.MCL)
		if err != nil {
			return nil, err
		}
		p.log().WithFields(logrus.Fields{
			"well":        i,
			"nonzero":     c.PositiveProbability(),
			"threshold":   mid,
			"probability": prob,
		}).Info("probability that the maximum concentration exceeds the threshold")
	}
	if err := p.saveAll(ctx, out...); err != nil {
		return nil, err
	}
	return curves, nil
}

// array packs the curve into a [4, bins] array.
func (c *SurvivalCurve) array() *sparse.DenseArray {
	n := len(c.Midpoints)
	o := sparse.ZerosDense(4, n)
	rows := [][]float64{c.Midpoints, c.Survival, c.LogNormalSurvival, c.BetaSurvival}
	for j, row := range rows {
		for i := 0; i < n; i++ {
			v := math.NaN()
			if row != nil {
				v = row[i]
			}
			o.Elements[j*n+i] = v
		}
	}
	return o
}

// TrendResult holds the transport index and target-region maxima of every
// realization, the trend lines sampled over the range of eta, and a log
// trend refit to the maximum resilience.
type TrendResult struct {
	Eta, MaxRisk, MaxResilience []float64

	CurveEta, CurveRisk, CurveResilience []float64

	Resilience LogTrend
}

// trendPoints is the number of points at which trend lines are sampled.
const trendPoints = 100

// Trend evaluates trend lines t over the range of the transport index
// and refits the resilience trend to the stored maxima.
func (p *Postprocessor) Trend(ctx context.Context, cfg StudyConfig, t TrendLines) (*TrendResult, error) {
	var arrays []*sparse.DenseArray
	for _, key := range []string{KeyEta, KeyMaxRisk, KeyMaxResilience} {
		a, err := p.Store.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := checkRank(key, a, 1); err != nil {
			return nil, err
		}
		if a.Shape[0] != cfg.NRealization {
			return nil, &ShapeMismatchError{What: key, Want: []int{cfg.NRealization}, Got: a.Shape}
		}
		arrays = append(arrays, a)
	}
	r := &TrendResult{
		Eta:           arrays[0].Elements,
		MaxRisk:       arrays[1].Elements,
		MaxResilience: arrays[2].Elements,
	}
	var err error
	r.CurveEta, r.CurveRisk, r.CurveResilience, err = t.Curve(trendPoints, floats.Max(r.Eta))
	if err != nil {
		return nil, err
	}
	if r.Resilience, err = FitLogTrend(r.Eta, r.MaxResilience); err != nil {
		return nil, err
	}
	p.log().WithFields(logrus.Fields{
		"a":  r.Resilience.A,
		"b":  r.Resilience.B,
		"r2": r.Resilience.RSquared,
	}).Info("fit resilience trend y = a + b*log(eta)")
	return r, nil
}

// All runs every stage in order. The transport index is only calculated
// if flow velocity grids have been imported.
func (p *Postprocessor) All(ctx context.Context, cfg StudyConfig) error {
	if err := p.Concentration(ctx, cfg); err != nil {
		return err
	}
	if err := p.RiskResilience(ctx, cfg); err != nil {
		return err
	}
	if _, _, err := p.MaxRiskResilience(ctx, cfg); err != nil {
		return err
	}
	if len(cfg.Wells) > 0 {
		if _, err := p.Wells(ctx, cfg); err != nil {
			return err
		}
		if _, err := p.Survival(ctx, cfg); err != nil {
			return err
		}
	}
	_, err := p.Store.Load(ctx, KeyFlow(0))
	var missing *MissingArtifactError
	if errors.As(err, &missing) {
		p.log().Info("no flow velocity grids; skipping transport index")
		return nil
	} else if err != nil {
		return err
	}
	_, err = p.Eta(ctx, cfg)
	return err
}

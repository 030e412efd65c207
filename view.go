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
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// Target selects which result a view shows: a single realization
// or the ensemble statistics. Its only implementations are Realization
// and Ensemble.
type Target interface {
	isTarget()
}

// Realization targets the realization with the given index.
type Realization int

// Ensemble targets the ensemble mean and variance.
type Ensemble struct{}

func (Realization) isTarget() {}
func (Ensemble) isTarget()    {}

func (r Realization) String() string { return fmt.Sprintf("realization %d", int(r)) }
func (Ensemble) String() string      { return "ensemble" }

// ParseTarget parses "ensemble" or a realization index.
func ParseTarget(s string) (Target, error) {
	if strings.EqualFold(strings.TrimSpace(s), "ensemble") {
		return Ensemble{}, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return nil, fmt.Errorf("ruq: invalid target %q; it should be 'ensemble' or a realization index", s)
	}
	return Realization(i), nil
}

// View is a field prepared for display. Views of a realization
// have a log-permeability Background (nil if no permeability
// fields have been imported) and no Variance. Views of the ensemble have
// a Variance and no Background.
//
// Concentration views of a realization also carry the tracks of the
// plume edge and the concentration maximum, when they have been imported.
type View struct {
	Target     Target
	Value      *sparse.DenseArray
	Variance   *sparse.DenseArray
	Background *sparse.DenseArray

	PlumeEdge, MaxConc *Track
}

// ConcentrationView returns the concentration field [time, y, x] of a
// realization or the ensemble mean and variance.
func (p *Postprocessor) ConcentrationView(ctx context.Context, cfg StudyConfig, target Target) (*View, error) {
	switch t := target.(type) {
	case Realization:
		all, err := p.Store.Load(ctx, KeyConcentrationAll)
		if err != nil {
			return nil, err
		}
		c, err := Unstack(all, int(t))
		if err != nil {
			return nil, err
		}
		v, err := p.realizationView(ctx, t, c)
		if err != nil {
			return nil, err
		}
		if v.PlumeEdge, err = p.loadTrack(ctx, KeyPlumeEdge(int(t))); err != nil {
			return nil, err
		}
		if v.MaxConc, err = p.loadTrack(ctx, KeyMaxConcTrack(int(t))); err != nil {
			return nil, err
		}
		return v, nil
	case Ensemble:
		return p.ensembleView(ctx, KeyConcentrationMean, KeyConcentrationVariance)
	default:
		panic(fmt.Errorf("ruq: invalid target type %T", target))
	}
}

// RiskView returns the risk ratio field [time, y, x] of a realization,
// or the probability of exceedance of the ensemble and its variance.
func (p *Postprocessor) RiskView(ctx context.Context, cfg StudyConfig, target Target) (*View, error) {
	switch t := target.(type) {
	case Realization:
		r, err := p.Store.Load(ctx, KeyRisk(int(t)))
		if err != nil {
			return nil, err
		}
		return p.realizationView(ctx, t, r)
	case Ensemble:
		return p.ensembleView(ctx, KeyRiskMean, KeyRiskVariance)
	default:
		panic(fmt.Errorf("ruq: invalid target type %T", target))
	}
}

// ResilienceView returns the resilience field [y, x] of a realization or
// the ensemble mean and variance.
func (p *Postprocessor) ResilienceView(ctx context.Context, cfg StudyConfig, target Target) (*View, error) {
	switch t := target.(type) {
	case Realization:
		r, err := p.Store.Load(ctx, KeyResilience(int(t)))
		if err != nil {
			return nil, err
		}
		return p.realizationView(ctx, t, r)
	case Ensemble:
		return p.ensembleView(ctx, KeyResilienceMean, KeyResilienceVariance)
	default:
		panic(fmt.Errorf("ruq: invalid target type %T", target))
	}
}

// PermeabilityView returns the log-permeability field [y, x] of a
// realization, or its ensemble mean and variance.
func (p *Postprocessor) PermeabilityView(ctx context.Context, cfg StudyConfig, target Target) (*View, error) {
	logk, err := p.Store.Load(ctx, KeyPermeability)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case Realization:
		v, err := Unstack(logk, int(t))
		if err != nil {
			return nil, err
		}
		return &View{Target: t, Value: v}, nil
	case Ensemble:
		mean, variance, err := meanVariance(logk)
		if err != nil {
			return nil, err
		}
		return &View{Target: t, Value: mean, Variance: variance}, nil
	default:
		panic(fmt.Errorf("ruq: invalid target type %T", target))
	}
}

// PermeabilityRange returns the lower and upper bounds of the
// log-permeability fields rounded down and up to the nearest integer,
// for use as a shared color scale.
func (p *Postprocessor) PermeabilityRange(ctx context.Context) (kmin, kmax float64, err error) {
	k, err := p.Store.Load(ctx, KeyPermeability)
	if err != nil {
		return 0, 0, err
	}
	kmin, kmax = math.Inf(1), math.Inf(-1)
	for _, v := range k.Elements {
		kmin = math.Min(kmin, v)
		kmax = math.Max(kmax, v)
	}
	return math.Floor(kmin), math.Ceil(kmax), nil
}

func (p *Postprocessor) realizationView(ctx context.Context, r Realization, value *sparse.DenseArray) (*View, error) {
	v := &View{Target: r, Value: value}
	k, err := p.Store.Load(ctx, KeyPermeability)
	var missing *MissingArtifactError
	if errors.As(err, &missing) {
		p.log().WithField("key", KeyPermeability).Debug("no permeability background")
		return v, nil
	} else if err != nil {
		return nil, err
	}
	if v.Background, err = Unstack(k, int(r)); err != nil {
		return nil, err
	}
	return v, nil
}

// loadTrack loads the track saved under key, or returns nil if there
// is none.
func (p *Postprocessor) loadTrack(ctx context.Context, key string) (*Track, error) {
	a, err := p.Store.Load(ctx, key)
	var missing *MissingArtifactError
	if errors.As(err, &missing) {
		p.log().WithField("key", key).Debug("no reference point track")
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return NewTrack(key, a)
}

func (p *Postprocessor) ensembleView(ctx context.Context, meanKey, varianceKey string) (*View, error) {
	mean, err := p.Store.Load(ctx, meanKey)
	if err != nil {
		return nil, err
	}
	variance, err := p.Store.Load(ctx, varianceKey)
	if err != nil {
		return nil, err
	}
	return &View{Target: Ensemble{}, Value: mean, Variance: variance}, nil
}

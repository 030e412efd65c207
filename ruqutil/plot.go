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
	"os"
	"path/filepath"

	"github.com/spatialmodel/ruq"
	"github.com/spatialmodel/ruq/render"
)

// Plot draws figure kind for target and saves it in dir. kind is one of
// "logk", "cfield", "risk", "resilience", "eta", or "survival". times holds
// the time step indices drawn for the time-dependent fields cfield and risk.
// trend is used by the "eta" figure.
func Plot(ctx context.Context, p *ruq.Postprocessor, cfg ruq.StudyConfig, kind string, target ruq.Target, times []int, trend ruq.TrendLines, dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("ruq: creating plot directory: %v", err)
	}
	name := func(suffix string) string {
		return filepath.Join(dir, fmt.Sprintf("%s_%s%s.png", kind, targetName(target), suffix))
	}
	switch kind {
	case "logk":
		v, err := p.PermeabilityView(ctx, cfg, target)
		if err != nil {
			return err
		}
		kmin, kmax, err := p.PermeabilityRange(ctx)
		if err != nil {
			return err
		}
		return render.FieldScaled(v, 0, cfg, kmin, kmax, name(""))
	case "cfield", "risk":
		view := p.ConcentrationView
		if kind == "risk" {
			view = p.RiskView
		}
		v, err := view(ctx, cfg, target)
		if err != nil {
			return err
		}
		for _, t := range times {
			if err := render.Field(v, t, cfg, name(fmt.Sprintf("_t%d", t))); err != nil {
				return err
			}
		}
		return nil
	case "resilience":
		v, err := p.ResilienceView(ctx, cfg, target)
		if err != nil {
			return err
		}
		return render.Field(v, 0, cfg, name(""))
	case "eta":
		r, err := p.Trend(ctx, cfg, trend)
		if err != nil {
			return err
		}
		if err := render.EtaScatter(r.Eta, r.MaxRisk, r.CurveEta, r.CurveRisk, "risk",
			filepath.Join(dir, "eta_risk.png")); err != nil {
			return err
		}
		return render.EtaScatter(r.Eta, r.MaxResilience, r.CurveEta, r.CurveResilience, "resilience",
			filepath.Join(dir, "eta_resilience.png"))
	case "survival":
		curves, err := p.SurvivalCurves(ctx, cfg)
		if err != nil {
			return err
		}
		for i, c := range curves {
			if err := render.Survival(c, cfg.Wells[i], filepath.Join(dir, fmt.Sprintf("survival_well%d.png", i))); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("ruq: invalid figure %q", kind)
	}
}

func targetName(t ruq.Target) string {
	switch t := t.(type) {
	case ruq.Realization:
		return fmt.Sprintf("real%d", int(t))
	case ruq.Ensemble:
		return "ensemble"
	default:
		panic(fmt.Errorf("ruq: invalid target type %T", t))
	}
}

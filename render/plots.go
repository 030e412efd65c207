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

package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/spatialmodel/ruq"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	figWidth  = 5 * vg.Inch
	figHeight = 3.5 * vg.Inch
)

var (
	empiricalColor = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	lognormalColor = color.NRGBA{R: 0, G: 90, B: 200, A: 255}
	betaColor      = color.NRGBA{R: 220, G: 60, B: 0, A: 255}
)

func rearrangeData(x, y []float64) plotter.XYs {
	out := make(plotter.XYs, 0, len(x))
	for i, xx := range x {
		yy := y[i]
		if math.IsNaN(xx) || math.IsInf(xx, 0) || math.IsNaN(yy) || math.IsInf(yy, 0) {
			continue
		}
		out = append(out, plotter.XY{X: xx, Y: yy})
	}
	return out
}

func newFigure(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Legend.ThumbnailWidth = .3 * vg.Inch
	p.Legend.Padding = 0.75 * vg.Millimeter
	p.Add(plotter.NewGrid())
	return p
}

// Survival plots the empirical survival function of the maximum
// concentration at well together with any fitted distributions,
// and writes the plot to file. The image format is chosen by the
// file extension.
func Survival(curve *ruq.SurvivalCurve, well ruq.Well, file string) error {
	p := newFigure(fmt.Sprintf("well (%d, %d)", well.X, well.Y),
		"maximum concentration (C/C0)", "P(C > c)")

	emp, s, err := plotter.NewLinePoints(rearrangeData(curve.Midpoints, curve.Survival))
	if err != nil {
		return err
	}
	emp.Color = empiricalColor
	s.Color = empiricalColor
	s.Shape = draw.CircleGlyph{}
	s.Radius = vg.Points(2)
	p.Add(emp, s)
	p.Legend.Add("empirical", emp, s)

	for _, fit := range []struct {
		name string
		y    []float64
		c    color.Color
	}{
		{"lognormal", curve.LogNormalSurvival, lognormalColor},
		{"beta", curve.BetaSurvival, betaColor},
	} {
		if fit.y == nil {
			continue
		}
		l, err := plotter.NewLine(rearrangeData(curve.Midpoints, fit.y))
		if err != nil {
			return err
		}
		l.Color = fit.c
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
		p.Legend.Add(fit.name, l)
	}
	p.Y.Min, p.Y.Max = 0, 1
	return p.Save(figWidth, figHeight, file)
}

// EtaScatter plots metric y against the transport index eta for each
// realization, with the trend line (trendX, trendY), and writes the
// plot to file. Realizations with non-finite eta or y are skipped.
// target names the metric on the y axis.
func EtaScatter(eta, y, trendX, trendY []float64, target, file string) error {
	if len(eta) != len(y) {
		return &ruq.ShapeMismatchError{What: target, Want: []int{len(eta)}, Got: []int{len(y)}}
	}
	if len(trendX) != len(trendY) {
		return &ruq.ShapeMismatchError{What: target + " trend", Want: []int{len(trendX)}, Got: []int{len(trendY)}}
	}
	points := rearrangeData(eta, y)
	trend := rearrangeData(trendX, trendY)
	if len(points) == 0 && len(trend) == 0 {
		return fmt.Errorf("render: no finite %s values to plot", target)
	}
	p := newFigure(target+" vs. η", "η", target)
	if len(points) > 0 {
		s, err := plotter.NewScatter(points)
		if err != nil {
			return err
		}
		s.Color = color.NRGBA{R: 127, G: 127, B: 127, A: 255}
		s.Shape = draw.CircleGlyph{}
		s.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add("realizations", s)
	}
	if len(trend) > 0 {
		l, err := plotter.NewLine(trend)
		if err != nil {
			return err
		}
		l.Color = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add("trend", l)
	}
	return p.Save(figWidth, figHeight, file)
}

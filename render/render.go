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

// Package render draws fields, survival curves and trend plots
// produced by the ruq post-processing stages as PNG images.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/ruq"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	panelWidth  = 4 * vg.Inch
	panelHeight = 3.5 * vg.Inch
	barHeight   = 0.7 * vg.Inch
	dpi         = 96

	// paletteSize is the number of colors in heat map palettes.
	paletteSize = 255
)

var (
	sourceColor = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	targetColor = color.NRGBA{R: 220, G: 0, B: 0, A: 255}
	wellColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	edgeColor   = color.NRGBA{R: 0, G: 0, B: 255, A: 204}
	maxColor    = color.NRGBA{R: 255, G: 0, B: 0, A: 204}
	trailColor  = color.NRGBA{R: 255, G: 0, B: 0, A: 128}
)

// grid adapts a two-dimensional [y, x] field to plotter.GridXYZ
// with coordinates in units of correlation length.
type grid struct {
	a                *sparse.DenseArray
	lambdaX, lambdaY float64

	// mask, if true, hides values that are not positive.
	mask bool
}

func (g grid) Dims() (c, r int) { return g.a.Shape[1], g.a.Shape[0] }

func (g grid) Z(c, r int) float64 {
	v := g.a.Get(r, c)
	if g.mask && !(v > 0) {
		return math.NaN()
	}
	return v
}

func (g grid) X(c int) float64 { return (float64(c) + 0.5) / g.lambdaX }
func (g grid) Y(r int) float64 { return (float64(r) + 0.5) / g.lambdaY }

// colorList is a fixed palette.
type colorList []color.Color

func (c colorList) Colors() []color.Color { return c }

// sample returns n colors spanning the color map.
func sample(cm palette.ColorMap, n int) palette.Palette {
	cm.SetMin(0)
	cm.SetMax(1)
	c := make(colorList, n)
	for i := range c {
		var err error
		c[i], err = cm.At(float64(i) / float64(n-1))
		if err != nil {
			panic(err)
		}
	}
	return c
}

// dataRange returns the range of the finite values of g, widened
// so that it is never empty.
func dataRange(g plotter.GridXYZ) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	c, r := g.Dims()
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			v := g.Z(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			min = math.Min(min, v)
			max = math.Max(max, v)
		}
	}
	switch {
	case min > max:
		return 0, 1
	case min == max:
		return min - 0.5, max + 0.5
	}
	return min, max
}

// layer is a heat map together with its color scale.
type layer struct {
	heat *plotter.HeatMap
	cmap palette.ColorMap
}

// newLayer creates a heat map layer scaled to [lo, hi], or to the range of
// the data if lo and hi do not form a valid range.
func newLayer(g grid, cm palette.ColorMap, lo, hi float64) layer {
	h := plotter.NewHeatMap(g, sample(cm, paletteSize))
	if hi > lo && !math.IsInf(lo, 0) && !math.IsInf(hi, 0) {
		h.Min, h.Max = lo, hi
	} else {
		h.Min, h.Max = dataRange(g)
	}
	h.NaN = color.Transparent
	h.Underflow = h.Palette.Colors()[0]
	h.Overflow = h.Palette.Colors()[paletteSize-1]
	cm.SetMin(h.Min)
	cm.SetMax(h.Max)
	return layer{heat: h, cmap: cm}
}

func grayscale() palette.ColorMap {
	cm, err := moreland.NewLuminance([]color.Color{
		color.NRGBA{R: 40, G: 40, B: 40, A: 255},
		color.NRGBA{R: 235, G: 235, B: 235, A: 255},
	})
	if err != nil {
		panic(err)
	}
	return cm
}

// panel is one heat map plot and the color bar for its top layer.
type panel struct {
	field, bar *plot.Plot
}

func newPanel(title string, cfg ruq.StudyConfig, layers ...layer) (panel, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x / λx"
	p.Y.Label.Text = "y / λy"
	for _, l := range layers {
		p.Add(l.heat)
	}
	if err := addZones(p, cfg); err != nil {
		return panel{}, err
	}
	lx, ly := float64(cfg.Lx)/float64(cfg.LambdaX), float64(cfg.Ly)/float64(cfg.LambdaY)
	p.X.Min, p.X.Max = 0, lx
	p.Y.Min, p.Y.Max = 0, ly

	bar := plot.New()
	bar.HideY()
	bar.X.Padding = 0
	bar.Add(&plotter.ColorBar{ColorMap: layers[len(layers)-1].cmap})
	return panel{field: p, bar: bar}, nil
}

// addZones outlines the source and target zones and marks the
// observation wells.
func addZones(p *plot.Plot, cfg ruq.StudyConfig) error {
	for _, z := range []struct {
		r ruq.Region
		c color.Color
	}{{cfg.Source, sourceColor}, {cfg.Target, targetColor}} {
		poly, err := plotter.NewPolygon(rectangle(z.r, cfg))
		if err != nil {
			return err
		}
		poly.Color = nil
		poly.LineStyle.Color = z.c
		poly.LineStyle.Width = vg.Points(1.5)
		p.Add(poly)
	}
	if len(cfg.Wells) == 0 {
		return nil
	}
	xy := make(plotter.XYs, len(cfg.Wells))
	for i, w := range cfg.Wells {
		xy[i].X = (float64(w.X) + 0.5) / float64(cfg.LambdaX)
		xy[i].Y = (float64(w.Y) + 0.5) / float64(cfg.LambdaY)
	}
	s, err := plotter.NewScatter(xy)
	if err != nil {
		return err
	}
	s.Shape = draw.CircleGlyph{}
	s.Color = wellColor
	s.Radius = vg.Points(2.5)
	p.Add(s)
	return nil
}

// addTracks marks where the plume edge and the concentration maximum
// of a realization are at time step t, and traces where they have been.
func addTracks(p *plot.Plot, view *ruq.View, t int, cfg ruq.StudyConfig) error {
	xys := func(tr *ruq.Track) plotter.XYs {
		xy := make(plotter.XYs, tr.Len())
		for i := range xy {
			xy[i].X = tr.X[i] / float64(cfg.LambdaX)
			xy[i].Y = tr.Y[i] / float64(cfg.LambdaY)
		}
		return xy
	}
	if e := view.PlumeEdge; e != nil {
		if trail := e.Through(t, cfg.Dt); trail.Len() > 0 {
			l, err := plotter.NewLine(xys(trail))
			if err != nil {
				return err
			}
			l.Color = edgeColor
			l.Dashes = []vg.Length{vg.Points(1), vg.Points(2)}
			p.Add(l)
		}
		if now := e.At(t, cfg.Dt); now.Len() > 0 {
			s, err := plotter.NewScatter(xys(now))
			if err != nil {
				return err
			}
			s.Shape = draw.CrossGlyph{}
			s.Color = edgeColor
			s.Radius = vg.Points(4)
			p.Add(s)
			p.Legend.Add("plume edge", s)
		}
	}
	if m := view.MaxConc; m != nil {
		if trail := m.Through(t, cfg.Dt); trail.Len() > 0 {
			s, err := plotter.NewScatter(xys(trail))
			if err != nil {
				return err
			}
			s.Shape = draw.CrossGlyph{}
			s.Color = trailColor
			s.Radius = vg.Points(2)
			p.Add(s)
		}
		if now := m.At(t, cfg.Dt); now.Len() > 0 {
			s, err := plotter.NewScatter(xys(now))
			if err != nil {
				return err
			}
			s.Shape = draw.CrossGlyph{}
			s.Color = maxColor
			s.Radius = vg.Points(4)
			p.Add(s)
			p.Legend.Add("conc. max", s)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return nil
}

func rectangle(r ruq.Region, cfg ruq.StudyConfig) plotter.XYs {
	lx, ly := float64(cfg.LambdaX), float64(cfg.LambdaY)
	x0, x1 := float64(r.XL)/lx, float64(r.XU)/lx
	y0, y1 := float64(r.YL)/ly, float64(r.YU)/ly
	return plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// slice returns the field at time index t of a [time, y, x] array,
// or a itself if it is already two-dimensional.
func slice(a *sparse.DenseArray, t int) (*sparse.DenseArray, error) {
	switch len(a.Shape) {
	case 2:
		return a, nil
	case 3:
		if t < 0 || t >= a.Shape[0] {
			return nil, &ruq.IndexOutOfRangeError{What: "time index", Index: []int{t}, Shape: a.Shape[:1]}
		}
		o := sparse.ZerosDense(a.Shape[1], a.Shape[2])
		n := len(o.Elements)
		copy(o.Elements, a.Elements[t*n:(t+1)*n])
		return o, nil
	default:
		return nil, &ruq.ShapeMismatchError{What: "view", Got: a.Shape, Rank: 3}
	}
}

// Field draws view at time index timeIndex and writes it to file
// as a PNG image. A realization is drawn over its log-permeability
// background when one is available; the ensemble is drawn as side by side
// mean and variance panels. timeIndex is ignored for fields without a
// time axis.
func Field(view *ruq.View, timeIndex int, cfg ruq.StudyConfig, file string) error {
	return FieldScaled(view, timeIndex, cfg, math.NaN(), math.NaN(), file)
}

// FieldScaled is like Field but scales the colors of a realization's
// values to [lo, hi], so that several realizations can share a color scale.
func FieldScaled(view *ruq.View, timeIndex int, cfg ruq.StudyConfig, lo, hi float64, file string) error {
	value, err := slice(view.Value, timeIndex)
	if err != nil {
		return err
	}
	if value.Shape[0] != cfg.Ly || value.Shape[1] != cfg.Lx {
		return &ruq.ShapeMismatchError{What: "view", Want: []int{cfg.Ly, cfg.Lx}, Got: value.Shape}
	}
	title := fmt.Sprint(view.Target)
	if len(view.Value.Shape) == 3 {
		title = fmt.Sprintf("%s, t = %g", title, float64(timeIndex)*cfg.Dt)
	}
	lx, ly := float64(cfg.LambdaX), float64(cfg.LambdaY)

	var panels []panel
	switch view.Target.(type) {
	case ruq.Realization:
		var layers []layer
		mask := false
		if view.Background != nil {
			layers = append(layers, newLayer(grid{a: view.Background, lambdaX: lx, lambdaY: ly}, grayscale(), math.NaN(), math.NaN()))
			mask = true
		}
		layers = append(layers, newLayer(grid{a: value, lambdaX: lx, lambdaY: ly, mask: mask}, moreland.SmoothBlueRed(), lo, hi))
		p, err := newPanel(title, cfg, layers...)
		if err != nil {
			return err
		}
		if len(view.Value.Shape) == 3 {
			if err := addTracks(p.field, view, timeIndex, cfg); err != nil {
				return err
			}
		}
		panels = append(panels, p)
	case ruq.Ensemble:
		variance, err := slice(view.Variance, timeIndex)
		if err != nil {
			return err
		}
		for i, f := range []*sparse.DenseArray{value, variance} {
			name := []string{"mean", "variance"}[i]
			cm := palette.ColorMap(moreland.SmoothBlueRed())
			if i == 1 {
				cm = moreland.Kindlmann()
			}
			p, err := newPanel(title+" "+name, cfg, newLayer(grid{a: f, lambdaX: lx, lambdaY: ly}, cm, math.NaN(), math.NaN()))
			if err != nil {
				return err
			}
			panels = append(panels, p)
		}
	default:
		panic(fmt.Errorf("render: invalid target type %T", view.Target))
	}
	return savePanels(panels, file)
}

// savePanels draws panels side by side with their color bars below them.
func savePanels(panels []panel, file string) error {
	img := vgimg.NewWith(vgimg.UseWH(panelWidth*vg.Length(len(panels)), panelHeight+barHeight), vgimg.UseDPI(dpi))
	dc := draw.New(img)
	fields := draw.Crop(dc, 0, 0, barHeight, 0)
	bars := draw.Crop(dc, 0, 0, 0, -panelHeight)

	t := draw.Tiles{
		Rows:      1,
		Cols:      len(panels),
		PadX:      vg.Millimeter,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(2),
	}
	row := make([]*plot.Plot, len(panels))
	barRow := make([]*plot.Plot, len(panels))
	for i, p := range panels {
		row[i] = p.field
		barRow[i] = p.bar
	}
	for i, c := range plot.Align([][]*plot.Plot{row}, t, fields)[0] {
		row[i].Draw(c)
	}
	for i, c := range plot.Align([][]*plot.Plot{barRow}, t, bars)[0] {
		barRow[i].Draw(c)
	}

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err = (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("render: writing %s: %w", file, err)
	}
	return f.Close()
}

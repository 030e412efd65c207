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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/sbinet/npyio"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/ruq"
	"github.com/spatialmodel/ruq/fieldstore"
	"gonum.org/v1/gonum/mat"
)

const nTime = 2

// concentration is the test concentration in realization r at column x
// and time step t.
func concentration(r, x, t int) float64 {
	return float64((r + 1) * (x + 1) * (t + 1))
}

// writeStudyInputs writes simulation output for cfg to dir and returns
// the concentration template, the permeability file and the flow template.
func writeStudyInputs(t *testing.T, dir string, cfg ruq.StudyConfig) (cfield, kfield, flow string) {
	t.Helper()
	cfield = filepath.Join(dir, "cfield_[REAL].npy")
	kfield = filepath.Join(dir, "kfields.npy")
	flow = filepath.Join(dir, "flow_[REAL].ftl")
	var k []float64
	for r := 0; r < cfg.NRealization; r++ {
		var c []float64
		for ti := 0; ti < nTime; ti++ {
			for y := 0; y < cfg.Ly; y++ {
				for x := 0; x < cfg.Lx; x++ {
					c = append(c, concentration(r, x, ti))
				}
			}
		}
		writeFile(t, expandTemplate(cfield, r), npyBytes([]int{nTime, cfg.Ly, cfg.Lx}, false, c))

		var b strings.Builder
		fmt.Fprintln(&b, " 'MT3D4.00.00' 1 2 3 1 1")
		fmt.Fprintln(&b, " 'QXX             '")
		for y := 0; y < cfg.Ly; y++ {
			for x := 0; x < cfg.Lx; x++ {
				fmt.Fprintf(&b, " %14.7E", float64(r+1))
			}
			fmt.Fprintln(&b)
		}
		writeFile(t, expandTemplate(flow, r), []byte(b.String()))

		for y := 0; y < cfg.Ly; y++ {
			for x := 0; x < cfg.Lx; x++ {
				k = append(k, float64(r)-0.1*float64(x+y))
			}
		}
	}
	writeFile(t, kfield, npyBytes([]int{cfg.NRealization, cfg.Ly, cfg.Lx}, false, k))
	return
}

// writeTracks writes plume edge and concentration maximum tracks for cfg
// to dir and returns their templates. The edge of realization r advances
// one cell per time step from column r.
func writeTracks(t *testing.T, dir string, cfg ruq.StudyConfig) (edge, maxConc string) {
	t.Helper()
	edge = filepath.Join(dir, "edge_[REAL].npy")
	maxConc = filepath.Join(dir, "maxconc_[REAL].npy")
	for r := 0; r < cfg.NRealization; r++ {
		var e, m []float64
		for ti := 0; ti < nTime; ti++ {
			tm := float64(ti) * cfg.Dt
			e = append(e, tm, float64(r+ti), 1)
			m = append(m, tm, float64(cfg.Lx-1), 1)
		}
		writeFile(t, expandTemplate(edge, r), npyBytes([]int{nTime, 3}, false, e))
		writeFile(t, expandTemplate(maxConc, r), npyBytes([]int{nTime, 3}, false, m))
	}
	return
}

func writeFile(t *testing.T, name string, b []byte) {
	t.Helper()
	if err := os.WriteFile(name, b, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	cfg, err := StudyConfig(testViper())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	cfield, kfield, flow := writeStudyInputs(t, dir, cfg)
	edge, maxConc := writeTracks(t, dir, cfg)

	store, err := fieldstore.Open(ctx, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	log, hook := test.NewNullLogger()
	files := ImportFiles{
		CFieldTemplate:    cfield,
		KFieldFile:        kfield,
		FlowTemplate:      flow,
		PlumeEdgeTemplate: edge,
		MaxConcTemplate:   maxConc,
	}
	if err := Import(ctx, store, cfg, files, log); err != nil {
		t.Fatal(err)
	}
	if n := len(hook.AllEntries()); n != 5 {
		t.Errorf("%d log entries; want 5", n)
	}

	for r := 0; r < cfg.NRealization; r++ {
		a, err := store.Load(ctx, ruq.KeyPlumeEdge(r))
		if err != nil {
			t.Fatal(err)
		}
		tr, err := ruq.NewTrack("edge", a)
		if err != nil {
			t.Fatal(err)
		}
		if want := []float64{float64(r), float64(r + 1)}; !reflect.DeepEqual(tr.X, want) {
			t.Errorf("realization %d: plume edge x = %v; want %v", r, tr.X, want)
		}
		if _, err := store.Load(ctx, ruq.KeyMaxConcTrack(r)); err != nil {
			t.Error(err)
		}
	}

	for r := 0; r < cfg.NRealization; r++ {
		c, err := store.Load(ctx, ruq.KeyConcentration(r))
		if err != nil {
			t.Fatal(err)
		}
		if want := []int{nTime, cfg.Ly, cfg.Lx}; !reflect.DeepEqual(c.Shape, want) {
			t.Fatalf("realization %d: concentration shape %v; want %v", r, c.Shape, want)
		}
		if have, want := c.Get(1, 2, 3), concentration(r, 3, 1); have != want {
			t.Errorf("realization %d: concentration %g; want %g", r, have, want)
		}
		q, err := store.Load(ctx, ruq.KeyFlow(r))
		if err != nil {
			t.Fatal(err)
		}
		if want := []int{cfg.Ly, cfg.Lx}; !reflect.DeepEqual(q.Shape, want) {
			t.Fatalf("realization %d: flow shape %v; want %v", r, q.Shape, want)
		}
		if have, want := q.Get(2, 0), float64(r+1); have != want {
			t.Errorf("realization %d: flow %g; want %g", r, have, want)
		}
	}
	k, err := store.Load(ctx, ruq.KeyPermeability)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{cfg.NRealization, cfg.Ly, cfg.Lx}; !reflect.DeepEqual(k.Shape, want) {
		t.Fatalf("permeability shape %v; want %v", k.Shape, want)
	}
	if have, want := k.Get(2, 1, 3), 2-0.4; different(have, want, 1e-12) {
		t.Errorf("permeability %g; want %g", have, want)
	}
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()
	cfg, err := StudyConfig(testViper())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	cfield, _, flow := writeStudyInputs(t, dir, cfg)
	badSize := filepath.Join(dir, "bad_[REAL].npy")
	shortFlow := filepath.Join(dir, "short_[REAL].ftl")
	for r := 0; r < cfg.NRealization; r++ {
		writeFile(t, expandTemplate(badSize, r), npyBytes([]int{5}, false, make([]float64, 5)))
		writeFile(t, expandTemplate(shortFlow, r), []byte(" 'QXX'\n 1 2\n"))
	}
	tests := []struct {
		name  string
		files ImportFiles
	}{
		{name: "nothing"},
		{name: "no placeholder", files: ImportFiles{CFieldTemplate: strings.Replace(cfield, "[REAL]", "0", 1)}},
		{name: "missing file", files: ImportFiles{CFieldTemplate: filepath.Join(dir, "missing_[REAL].npy")}},
		{name: "concentration size", files: ImportFiles{CFieldTemplate: badSize}},
		{name: "permeability size", files: ImportFiles{KFieldFile: expandTemplate(cfield, 0)}},
		{name: "flow format", files: ImportFiles{FlowTemplate: cfield}},
		{name: "flow size", files: ImportFiles{FlowTemplate: shortFlow}},
		{name: "flow no placeholder", files: ImportFiles{FlowTemplate: strings.Replace(flow, "[REAL]", "1", 1)}},
		{name: "track columns", files: ImportFiles{PlumeEdgeTemplate: badSize}},
		{name: "track grid", files: ImportFiles{MaxConcTemplate: cfield}},
	}
	log, _ := test.NewNullLogger()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := fieldstore.Open(ctx, t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()
			if err := Import(ctx, store, cfg, tt.files, log); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadNPY(t *testing.T) {
	t.Run("fortran", func(t *testing.T) {
		a, err := readNPY(bytes.NewReader(npyBytes([]int{2, 3}, true, []float64{0, 3, 1, 4, 2, 5})))
		if err != nil {
			t.Fatal(err)
		}
		if want := []float64{0, 1, 2, 3, 4, 5}; !reflect.DeepEqual(a.Elements, want) {
			t.Errorf("elements = %v; want %v", a.Elements, want)
		}
		if want := []int{2, 3}; !reflect.DeepEqual(a.Shape, want) {
			t.Errorf("shape = %v; want %v", a.Shape, want)
		}
	})
	t.Run("fortran 3d", func(t *testing.T) {
		// Element (i, j, k) of a [2, 2, 2] array is 100i + 10j + k.
		var data []float64
		for k := 0; k < 2; k++ {
			for j := 0; j < 2; j++ {
				for i := 0; i < 2; i++ {
					data = append(data, float64(100*i+10*j+k))
				}
			}
		}
		a, err := readNPY(bytes.NewReader(npyBytes([]int{2, 2, 2}, true, data)))
		if err != nil {
			t.Fatal(err)
		}
		want := []float64{0, 1, 10, 11, 100, 101, 110, 111}
		if !reflect.DeepEqual(a.Elements, want) {
			t.Errorf("elements = %v; want %v", a.Elements, want)
		}
	})
	t.Run("float32", func(t *testing.T) {
		var buf bytes.Buffer
		if err := npyio.Write(&buf, []float32{1.5, -2, 3}); err != nil {
			t.Fatal(err)
		}
		a, err := readNPY(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if want := []float64{1.5, -2, 3}; !reflect.DeepEqual(a.Elements, want) {
			t.Errorf("elements = %v; want %v", a.Elements, want)
		}
	})
	t.Run("int", func(t *testing.T) {
		var buf bytes.Buffer
		if err := npyio.Write(&buf, []int64{1, 2}); err != nil {
			t.Fatal(err)
		}
		if _, err := readNPY(&buf); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("truncated", func(t *testing.T) {
		b := npyBytes([]int{4}, false, []float64{1, 2, 3, 4})
		if _, err := readNPY(bytes.NewReader(b[:len(b)-16])); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	store, err := fieldstore.Open(ctx, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	a := sparse.ZerosDense(2, 3, 2)
	for i := range a.Elements {
		a.Elements[i] = float64(i) / 2
	}
	if err := store.Save(ctx, "cmean", a); err != nil {
		t.Fatal(err)
	}
	eta := sparse.ZerosDense(3)
	copy(eta.Elements, []float64{0.5, 1, 1.5})
	if err := store.Save(ctx, "eta", eta); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	t.Run("matrix", func(t *testing.T) {
		file := filepath.Join(dir, "cmean.npy")
		if err := Export(ctx, store, "cmean", file); err != nil {
			t.Fatal(err)
		}
		f, err := os.Open(file)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		var m mat.Dense
		if err := npyio.Read(f, &m); err != nil {
			t.Fatal(err)
		}
		if r, c := m.Dims(); r != 2 || c != 6 {
			t.Fatalf("dims = (%d, %d); want (2, 6)", r, c)
		}
		if have, want := m.At(1, 4), a.Get(1, 2, 0); have != want {
			t.Errorf("value = %g; want %g", have, want)
		}
	})
	t.Run("vector", func(t *testing.T) {
		file := filepath.Join(dir, "eta.npy")
		if err := Export(ctx, store, "eta", file); err != nil {
			t.Fatal(err)
		}
		f, err := os.Open(file)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		have, err := readNPY(f)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(have.Elements, eta.Elements) {
			t.Errorf("eta = %v; want %v", have.Elements, eta.Elements)
		}
	})
	t.Run("missing", func(t *testing.T) {
		err := Export(ctx, store, "cvar", filepath.Join(dir, "cvar.npy"))
		if _, ok := err.(*ruq.MissingArtifactError); !ok {
			t.Errorf("err = %v; want a MissingArtifactError", err)
		}
	})
}

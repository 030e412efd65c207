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
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sbinet/npyio"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ruq"
	"github.com/spatialmodel/ruq/modflow"
	"gonum.org/v1/gonum/mat"
)

// realizationPlaceholder is replaced by the realization index in
// input file templates.
const realizationPlaceholder = "[REAL]"

func expandTemplate(template string, i int) string {
	return strings.Replace(template, realizationPlaceholder, strconv.Itoa(i), -1)
}

// ImportFiles names the simulation output to import. Templates contain
// "[REAL]" in place of the realization index. Inputs with empty names
// are skipped.
type ImportFiles struct {
	// CFieldTemplate names the concentration field .npy files.
	CFieldTemplate string

	// KFieldFile is the .npy file of the log-permeability fields of
	// all realizations.
	KFieldFile string

	// FlowTemplate names the MODFLOW .ftl flow files.
	FlowTemplate string

	// PlumeEdgeTemplate and MaxConcTemplate name .npy files of
	// [n, 3] (time, x, y) tracks of the plume edge and the concentration
	// maximum.
	PlumeEdgeTemplate, MaxConcTemplate string
}

func (f ImportFiles) empty() bool { return f == ImportFiles{} }

// Import reads the simulation output of every realization named by files
// and saves it in store.
func Import(ctx context.Context, store ruq.FieldStore, cfg ruq.StudyConfig, files ImportFiles, log logrus.FieldLogger) error {
	if files.empty() {
		return fmt.Errorf("ruq: nothing to import; set Import.CFieldTemplate, Import.KFieldFile, Import.FlowTemplate, Import.PlumeEdgeTemplate, or Import.MaxConcTemplate")
	}
	if files.CFieldTemplate != "" {
		if err := importRealizations(ctx, store, cfg, files.CFieldTemplate, ruq.KeyConcentration, readConcentration); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"template":     files.CFieldTemplate,
			"realizations": cfg.NRealization,
		}).Info("imported concentration fields")
	}
	if files.KFieldFile != "" {
		if err := importPermeability(ctx, store, cfg, files.KFieldFile); err != nil {
			return err
		}
		log.WithField("file", files.KFieldFile).Info("imported permeability fields")
	}
	if files.FlowTemplate != "" {
		readFlow := func(r io.Reader, cfg ruq.StudyConfig) (*sparse.DenseArray, error) {
			return modflow.ReadFTL(r, cfg.Ly, cfg.Lx)
		}
		if err := importRealizations(ctx, store, cfg, files.FlowTemplate, ruq.KeyFlow, readFlow); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"template":     files.FlowTemplate,
			"realizations": cfg.NRealization,
		}).Info("imported flow fields")
	}
	for _, tr := range []struct {
		template, name string
		key            func(int) string
	}{
		{files.PlumeEdgeTemplate, "plume edge", ruq.KeyPlumeEdge},
		{files.MaxConcTemplate, "concentration maximum", ruq.KeyMaxConcTrack},
	} {
		if tr.template == "" {
			continue
		}
		if err := importRealizations(ctx, store, cfg, tr.template, tr.key, readTrack); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"template":     tr.template,
			"realizations": cfg.NRealization,
		}).Infof("imported %s tracks", tr.name)
	}
	return nil
}

func importRealizations(ctx context.Context, store ruq.FieldStore, cfg ruq.StudyConfig, template string, key func(int) string, read func(io.Reader, ruq.StudyConfig) (*sparse.DenseArray, error)) error {
	if !strings.Contains(template, realizationPlaceholder) {
		return fmt.Errorf("ruq: input file template %q does not contain %s", template, realizationPlaceholder)
	}
	for i := 0; i < cfg.NRealization; i++ {
		file := expandTemplate(template, i)
		r, err := openInput(ctx, file)
		if err != nil {
			return err
		}
		a, err := read(r, cfg)
		r.Close()
		if err != nil {
			return fmt.Errorf("ruq: importing %s: %w", file, err)
		}
		if err := store.Save(ctx, key(i), a); err != nil {
			return err
		}
	}
	return nil
}

// readConcentration reads a concentration field and reshapes it to
// [time, Ly, Lx]. The time axis may be flattened into the others.
func readConcentration(r io.Reader, cfg ruq.StudyConfig) (*sparse.DenseArray, error) {
	a, err := readNPY(r)
	if err != nil {
		return nil, err
	}
	n := cfg.Ly * cfg.Lx
	if len(a.Elements) == 0 || len(a.Elements)%n != 0 {
		return nil, &ruq.ShapeMismatchError{What: "concentration field", Want: []int{-1, cfg.Ly, cfg.Lx}, Got: a.Shape}
	}
	return reshape(a, len(a.Elements)/n, cfg.Ly, cfg.Lx), nil
}

// readTrack reads an [n, 3] array of (time, x, y) reference points.
func readTrack(r io.Reader, cfg ruq.StudyConfig) (*sparse.DenseArray, error) {
	a, err := readNPY(r)
	if err != nil {
		return nil, err
	}
	if _, err := ruq.NewTrack("reference point track", a); err != nil {
		return nil, err
	}
	return a, nil
}

func importPermeability(ctx context.Context, store ruq.FieldStore, cfg ruq.StudyConfig, file string) error {
	r, err := openInput(ctx, file)
	if err != nil {
		return err
	}
	defer r.Close()
	a, err := readNPY(r)
	if err != nil {
		return fmt.Errorf("ruq: importing %s: %w", file, err)
	}
	if len(a.Elements) != cfg.NRealization*cfg.Ly*cfg.Lx {
		return &ruq.ShapeMismatchError{What: "permeability fields", Want: []int{cfg.NRealization, cfg.Ly, cfg.Lx}, Got: a.Shape}
	}
	return store.Save(ctx, ruq.KeyPermeability, reshape(a, cfg.NRealization, cfg.Ly, cfg.Lx))
}

func reshape(a *sparse.DenseArray, shape ...int) *sparse.DenseArray {
	o := sparse.ZerosDense(shape...)
	copy(o.Elements, a.Elements)
	return o
}

var (
	float64Type = reflect.TypeOf(float64(0))
	float32Type = reflect.TypeOf(float32(0))
)

// readNPY reads a floating point array in the .npy format.
func readNPY(r io.Reader) (*sparse.DenseArray, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return nil, err
	}
	shape := rd.Header.Descr.Shape
	if len(shape) == 0 {
		return nil, fmt.Errorf("ruq: .npy array is a scalar")
	}
	var data []float64
	switch npyio.TypeFrom(rd.Header.Descr.Type) {
	case float64Type:
		if err := rd.Read(&data); err != nil {
			return nil, fmt.Errorf("ruq: reading .npy data: %v", err)
		}
	case float32Type:
		var d32 []float32
		if err := rd.Read(&d32); err != nil {
			return nil, fmt.Errorf("ruq: reading .npy data: %v", err)
		}
		data = make([]float64, len(d32))
		for i, v := range d32 {
			data[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("ruq: unsupported .npy data type %q", rd.Header.Descr.Type)
	}
	a := sparse.ZerosDense(shape...)
	if len(data) != len(a.Elements) {
		return nil, fmt.Errorf("ruq: .npy file has %d values but its shape %v needs %d", len(data), shape, len(a.Elements))
	}
	if !rd.Header.Descr.Fortran {
		copy(a.Elements, data)
		return a, nil
	}
	// Column-major: the first index varies fastest.
	idx := make([]int, len(shape))
	for i := range a.Elements {
		off, stride := 0, 1
		for d := range shape {
			off += idx[d] * stride
			stride *= shape[d]
		}
		a.Elements[i] = data[off]
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return a, nil
}

// Export writes the array saved under key to file in the .npy format.
// Arrays with more than two dimensions are flattened to two dimensions.
func Export(ctx context.Context, store ruq.FieldStore, key, file string) error {
	a, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("ruq: %v", err)
	}
	if len(a.Shape) == 1 || len(a.Elements) == 0 {
		err = npyio.Write(f, a.Elements)
	} else {
		rows := a.Shape[0]
		err = npyio.Write(f, mat.NewDense(rows, len(a.Elements)/rows, a.Elements))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("ruq: exporting %s: %v", key, err)
	}
	return f.Close()
}

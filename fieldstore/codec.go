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

package fieldstore

import (
	"fmt"
	"io"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// dataVar is the name of the netCDF variable holding an artifact.
const dataVar = "data"

// Global attributes of an artifact file.
const (
	attrKey        = "key"
	attrProvenance = "provenance"
	attrVersion    = "ruq_version"
)

// encode returns a netCDF file holding data, with the given global
// attributes.
func encode(data *sparse.DenseArray, attrs map[string]string) ([]byte, error) {
	dims := make([]string, len(data.Shape))
	for i, d := range data.Shape {
		if d <= 0 {
			return nil, fmt.Errorf("fieldstore: array shape %v has an empty dimension", data.Shape)
		}
		dims[i] = fmt.Sprintf("dim%d", i)
	}
	h := cdf.NewHeader(dims, data.Shape)
	h.AddVariable(dataVar, dims, []float64{0})
	for _, k := range []string{attrKey, attrProvenance, attrVersion} {
		if v := attrs[k]; v != "" {
			h.AddAttribute("", k, v)
		}
	}
	h.Define()
	for _, err := range h.Check() {
		return nil, fmt.Errorf("fieldstore: creating netcdf header: %v", err)
	}

	buf := new(buffer)
	f, err := cdf.Create(buf, h)
	if err != nil {
		return nil, fmt.Errorf("fieldstore: creating netcdf file: %v", err)
	}
	// The writer reports io.EOF once it reaches the end of the variable.
	w := f.Writer(dataVar, nil, nil)
	if _, err := w.Write(data.Elements); err != nil && err != io.EOF {
		return nil, fmt.Errorf("fieldstore: writing netcdf data: %v", err)
	}
	return buf.Bytes(), nil
}

// decode reads an array and its global attributes from netCDF file b.
func decode(b []byte) (*sparse.DenseArray, map[string]string, error) {
	f, err := cdf.Open((*buffer)(&b))
	if err != nil {
		return nil, nil, fmt.Errorf("fieldstore: opening netcdf file: %v", err)
	}
	shape := f.Header.Lengths(dataVar)
	if len(shape) == 0 {
		return nil, nil, fmt.Errorf("fieldstore: netcdf file has no %q variable", dataVar)
	}
	r := f.Reader(dataVar, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("fieldstore: reading netcdf data: %v", err)
	}
	elements, ok := buf.([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("fieldstore: netcdf variable has type %T, not []float64", buf)
	}
	data := sparse.ZerosDense(shape...)
	if len(elements) != len(data.Elements) {
		return nil, nil, fmt.Errorf("fieldstore: read %d values for shape %v", len(elements), shape)
	}
	copy(data.Elements, elements)

	attrs := make(map[string]string)
	for _, k := range f.Header.Attributes("") {
		if v, ok := f.Header.GetAttribute("", k).(string); ok {
			attrs[k] = v
		}
	}
	return data, attrs, nil
}

// buffer is an in-memory cdf.ReaderWriterAt.
type buffer []byte

func (b *buffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(*b)) {
		return 0, io.EOF
	}
	n := copy(p, (*b)[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *buffer) WriteAt(p []byte, off int64) (int, error) {
	if end := off + int64(len(p)); end > int64(len(*b)) {
		*b = append(*b, make([]byte, end-int64(len(*b)))...)
	}
	return copy((*b)[off:], p), nil
}

// Bytes returns the buffer contents.
func (b *buffer) Bytes() []byte { return *b }

var _ cdf.ReaderWriterAt = (*buffer)(nil)

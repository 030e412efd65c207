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
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/ruq"
)

func testViper() *viper.Viper {
	cfg := viper.New()
	for k, v := range map[string]interface{}{
		"NRealization":     3,
		"Kg":               1.0,
		"Lx":               4,
		"Ly":               3,
		"LambdaX":          1,
		"LambdaY":          1,
		"Source.XL":        0,
		"Source.XU":        1,
		"Source.YL":        0,
		"Source.YU":        2,
		"Target.XL":        2,
		"Target.XU":        4,
		"Target.YL":        0,
		"Target.YU":        3,
		"MCL":              0.5,
		"ObservationWells": "[[3, 1]]",
		"Dt":               1.0,
		"Bins":             3,
	} {
		cfg.Set(k, v)
	}
	return cfg
}

func TestStudyConfig(t *testing.T) {
	have, err := StudyConfig(testViper())
	if err != nil {
		t.Fatal(err)
	}
	want := ruq.StudyConfig{
		NRealization: 3,
		Kg:           1,
		Lx:           4,
		Ly:           3,
		LambdaX:      1,
		LambdaY:      1,
		Source:       ruq.Region{XL: 0, XU: 1, YL: 0, YU: 2},
		Target:       ruq.Region{XL: 2, XU: 4, YL: 0, YU: 3},
		MCL:          0.5,
		Wells:        []ruq.Well{{X: 3, Y: 1}},
		Dt:           1,
		Bins:         3,
	}
	if diff := pretty.Diff(have, want); len(diff) != 0 {
		t.Error(diff)
	}

	t.Run("invalid", func(t *testing.T) {
		cfg := testViper()
		cfg.Set("Target.XU", 5)
		_, err := StudyConfig(cfg)
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "target region") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestObservationWells(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []ruq.Well
		err  bool
	}{
		{name: "nil"},
		{name: "empty string", in: ""},
		{name: "empty list", in: "[]"},
		{name: "json", in: "[[1, 2], [3, 4]]", want: []ruq.Well{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		{name: "toml", in: []interface{}{[]interface{}{int64(5), int64(6)}}, want: []ruq.Well{{X: 5, Y: 6}}},
		{name: "ints", in: [][]int{{7, 8}}, want: []ruq.Well{{X: 7, Y: 8}}},
		{name: "three coordinates", in: "[[1, 2, 3]]", err: true},
		{name: "bad json", in: "[[1, 2]", err: true},
		{name: "bad type", in: 3.5, err: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have, err := observationWells(test.in)
			if (err != nil) != test.err {
				t.Fatalf("err = %v", err)
			}
			if diff := pretty.Diff(have, test.want); len(diff) != 0 {
				t.Error(diff)
			}
		})
	}
}

func TestToIntSliceE(t *testing.T) {
	tests := []struct {
		in   interface{}
		want []int
	}{
		{in: "[0]", want: []int{0}},
		{in: "[1,2]", want: []int{1, 2}},
		{in: []interface{}{int64(3), int64(4)}, want: []int{3, 4}},
		{in: []int{5}, want: []int{5}},
	}
	for _, test := range tests {
		have, err := toIntSliceE(test.in)
		if err != nil {
			t.Errorf("%v: %v", test.in, err)
			continue
		}
		if diff := pretty.Diff(have, test.want); len(diff) != 0 {
			t.Errorf("%v: %v", test.in, diff)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logFile := t.TempDir() + "/ruq.log"
	log, closeLog, err := newLogger(&buf, logFile, "debug")
	if err != nil {
		t.Fatal(err)
	}
	log.WithField("realization", 2).Debug("testing")
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, out := range []string{buf.String(), string(b)} {
		if !strings.Contains(out, "msg=testing realization=2") {
			t.Errorf("log output %q is missing the message", out)
		}
	}
	if _, _, err := newLogger(&buf, "", "loud"); err == nil {
		t.Error("expected an error for an invalid level")
	}
}

// npyBytes returns a version 1.0 .npy file holding float64 data with
// the given shape.
func npyBytes(shape []int, fortran bool, data []float64) []byte {
	dims := make([]string, len(shape))
	for i, s := range shape {
		dims[i] = fmt.Sprint(s)
	}
	order := "False"
	if fortran {
		order = "True"
	}
	hdr := fmt.Sprintf("{'descr': '<f8', 'fortran_order': %s, 'shape': (%s,), }", order, strings.Join(dims, ", "))
	for (10+len(hdr)+1)%64 != 0 {
		hdr += " "
	}
	hdr += "\n"
	var b bytes.Buffer
	b.WriteString("\x93NUMPY\x01\x00")
	binary.Write(&b, binary.LittleEndian, uint16(len(hdr)))
	b.WriteString(hdr)
	binary.Write(&b, binary.LittleEndian, data)
	return b.Bytes()
}

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

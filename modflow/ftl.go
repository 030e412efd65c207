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

// Package modflow reads flow velocity grids from MODFLOW flow-transport
// link (.ftl) files.
package modflow

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// maxLine is the longest line that ReadFTL accepts.
const maxLine = 1 << 20

// ReadFTL reads the x-direction flow velocity grid from a formatted
// flow-transport link file. The grid is the block of ny*nx whitespace
// separated values that follows the first header line whose fourth
// character is 'X'. Values are in row-major order and may use Fortran
// 'D' exponents. The result has dimensions [ny, nx].
func ReadFTL(r io.Reader, ny, nx int) (*sparse.DenseArray, error) {
	if ny <= 0 || nx <= 0 {
		return nil, fmt.Errorf("modflow: invalid grid size %d×%d", ny, nx)
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNum := 0
	found := false
	for s.Scan() {
		lineNum++
		if line := s.Text(); len(line) > 3 && line[3] == 'X' {
			found = true
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("modflow: reading ftl file: %v", err)
	}
	if !found {
		return nil, fmt.Errorf("modflow: ftl file has no x-direction flow block")
	}

	o := sparse.ZerosDense(ny, nx)
	i := 0
	for i < len(o.Elements) && s.Scan() {
		lineNum++
		for _, field := range strings.Fields(s.Text()) {
			if i == len(o.Elements) {
				break
			}
			v, err := parseFloat(field)
			if err != nil {
				return nil, fmt.Errorf("modflow: ftl line %d: %v", lineNum, err)
			}
			o.Elements[i] = v
			i++
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("modflow: reading ftl file: %v", err)
	}
	if i < len(o.Elements) {
		return nil, fmt.Errorf("modflow: ftl x-direction flow block has %d values; want %d", i, len(o.Elements))
	}
	return o, nil
}

var fortranExponent = strings.NewReplacer("D", "E", "d", "e")

// parseFloat parses a number that may have a Fortran double precision
// exponent such as 1.5D-03.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(fortranExponent.Replace(s), 64)
}

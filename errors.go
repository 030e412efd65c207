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

import "fmt"

// DegenerateInputError is returned when a concentration field has no
// positive initial peak to normalize by.
type DegenerateInputError struct {
	// C0 is the offending normalization reference.
	C0 float64
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("ruq: initial peak concentration c0=%g must be >0", e.C0)
}

// ShapeMismatchError is returned when an array does not have the
// expected shape, either when stacking realizations or when an array
// has the wrong number of dimensions.
type ShapeMismatchError struct {
	What      string
	Want, Got []int

	// Rank is the required number of dimensions when only the rank,
	// not the full shape, is constrained.
	Rank int
}

func (e *ShapeMismatchError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("ruq: %s is missing", e.What)
	}
	if e.Want == nil {
		return fmt.Sprintf("ruq: %s has shape %v, want %d dimensions", e.What, e.Got, e.Rank)
	}
	return fmt.Sprintf("ruq: %s has shape %v, want %v", e.What, e.Got, e.Want)
}

// IndexOutOfRangeError is returned when a well or region falls
// outside of the grid.
type IndexOutOfRangeError struct {
	What  string
	Index []int
	Shape []int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("ruq: %s index %v is out of range for grid shape %v", e.What, e.Index, e.Shape)
}

// MissingArtifactError is returned by a FieldStore when the requested
// key does not exist, which usually means an earlier stage has not been run.
type MissingArtifactError struct {
	Key string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("ruq: artifact %q does not exist; run the stage that creates it first", e.Key)
}

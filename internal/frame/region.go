// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package frame

import (
	"fmt"
)

// A half-open integer interval [Start, Stop)
type Range struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

func (r Range) Len() int { return r.Stop - r.Start }

// Absolute indices covered by the range, in ascending order
func (r Range) Indices() []int {
	if r.Len() <= 0 {
		return nil
	}
	idx := make([]int, r.Len())
	for i := range idx {
		idx[i] = r.Start + i
	}
	return idx
}

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Start, r.Stop) }

// The rectangular region of interest used for calibration statistics
type Region struct {
	Rows Range `json:"rows"`
	Cols Range `json:"cols"`
}

func NewRegion(rowStart, rowStop, colStart, colStop int) Region {
	return Region{Rows: Range{rowStart, rowStop}, Cols: Range{colStart, colStop}}
}

func (r Region) NumRows() int { return r.Rows.Len() }
func (r Region) NumCols() int { return r.Cols.Len() }

func (r Region) String() string { return fmt.Sprintf("rows %v, cols %v", r.Rows, r.Cols) }

// A configuration validation failure. Unwraps to the sentinel it was created from
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Err.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Checks that both ranges are non-empty and lie within a frame of the given size
func (r Region) Validate(rows, cols int) error {
	if err := validateRange("rows", r.Rows, rows); err != nil {
		return err
	}
	return validateRange("cols", r.Cols, cols)
}

func validateRange(name string, r Range, limit int) error {
	if r.Len() <= 0 {
		return &ValidationError{Field: name, Reason: fmt.Sprintf("range %v is empty", r), Err: ErrInvalidRegion}
	}
	if r.Start < 0 || r.Stop > limit {
		return &ValidationError{Field: name, Reason: fmt.Sprintf("range %v outside 0..%d", r, limit), Err: ErrInvalidRegion}
	}
	return nil
}

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
	"math"
)

// Signal level below which a pixel is considered bad
const DefaultBadPixelThreshold = 0.1

// Pixel quality mask. Bad[i] is true where sample i of the matching frame
// must be ignored by aggregate statistics
type Mask struct {
	Rows int
	Cols int
	Bad  []bool
}

// Creates an all-good mask of the given dimensions
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Bad: make([]bool, rows*cols)}
}

// Flags all samples below the threshold. NaN samples are flagged as well
func NewThresholdMask(f *Frame, threshold float64) *Mask {
	m := NewMask(f.Rows, f.Cols)
	for i, v := range f.Data {
		m.Bad[i] = v < threshold || math.IsNaN(v)
	}
	return m
}

func (m *Mask) At(row, col int) bool { return m.Bad[row*m.Cols+col] }

func (m *Mask) Set(row, col int, bad bool) { m.Bad[row*m.Cols+col] = bad }

// Flags every pixel of the given column
func (m *Mask) SetColumn(col int, bad bool) {
	for row := 0; row < m.Rows; row++ {
		m.Bad[row*m.Cols+col] = bad
	}
}

// Flags every pixel of the given row
func (m *Mask) SetRow(row int, bad bool) {
	r := m.Bad[row*m.Cols : (row+1)*m.Cols]
	for i := range r {
		r[i] = bad
	}
}

// Number of flagged pixels
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bad {
		if b {
			n++
		}
	}
	return n
}

// Returns an error if frame and mask dimensions differ
func CheckShape(f *Frame, m *Mask) error {
	if f.Rows != m.Rows || f.Cols != m.Cols || len(m.Bad) != len(f.Data) {
		return fmt.Errorf("%w: frame %s, mask %dx%d", ErrShapeMismatch, f.DimensionsToString(), m.Rows, m.Cols)
	}
	return nil
}

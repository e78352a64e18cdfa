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
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidFrame  = errors.New("invalid frame")
	ErrInvalidRegion = errors.New("invalid region of interest")
	ErrShapeMismatch = errors.New("shape mismatch")
)

// A detector frame: one full readout of the sensor.
// Data is stored row-major, i.e. the column index varies most quickly.
type Frame struct {
	ID       int       // Sequential ID number, for log output
	FileName string    // Original file name, if any, for log output
	Rows     int       // Number of detector rows
	Cols     int       // Number of detector columns
	Data     []float64 // The samples, len(Data)==Rows*Cols
}

// Creates a frame with the given dimensions. Data is not copied, allocated if nil
func NewFrame(rows, cols int, data []float64) (*Frame, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, rows, cols)
	}
	if data == nil {
		data = make([]float64, rows*cols)
	} else if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d samples for %dx%d frame", ErrInvalidFrame, len(data), rows, cols)
	}
	return &Frame{Rows: rows, Cols: cols, Data: data}, nil
}

// Creates a frame of the given dimensions with all samples set to v
func NewFrameConst(rows, cols int, v float64) (*Frame, error) {
	f, err := NewFrame(rows, cols, nil)
	if err != nil {
		return nil, err
	}
	for i := range f.Data {
		f.Data[i] = v
	}
	return f, nil
}

func (f *Frame) At(row, col int) float64 { return f.Data[row*f.Cols+col] }

func (f *Frame) Set(row, col int, v float64) { f.Data[row*f.Cols+col] = v }

// Returns the given row as a slice sharing the frame's storage
func (f *Frame) Row(row int) []float64 { return f.Data[row*f.Cols : (row+1)*f.Cols] }

func (f *Frame) DimensionsToString() string { return fmt.Sprintf("%dx%d", f.Rows, f.Cols) }

// Adds other to f elementwise. Dimensions must match
func (f *Frame) Add(other *Frame) error {
	if f.Rows != other.Rows || f.Cols != other.Cols {
		return fmt.Errorf("%w: %s vs %s", ErrShapeMismatch, f.DimensionsToString(), other.DimensionsToString())
	}
	for i, v := range other.Data {
		f.Data[i] += v
	}
	return nil
}

// Number of NaN samples in the frame
func (f *Frame) CountNaN() int {
	n := 0
	for _, v := range f.Data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

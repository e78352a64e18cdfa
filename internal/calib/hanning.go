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


package calib

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Symmetric Hann window of length n, zero at both ends
func Hanning(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Weights of a 2D Hann window of the given shape, row-major. The outer product
// of a row and a column window, optionally normalized to sum to one
func HanningWindow2D(rows, cols int, normalize bool) ([]float64, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("2D Hanning window needs a positive shape, got %dx%d", rows, cols)
	}
	hRow, hCol := Hanning(rows), Hanning(cols)
	w := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		dst := w[r*cols : (r+1)*cols]
		floats.ScaleTo(dst, hRow[r], hCol)
	}
	if normalize {
		sum := floats.Sum(w)
		if sum == 0 {
			return nil, fmt.Errorf("2D Hanning window %dx%d has zero sum", rows, cols)
		}
		floats.Scale(1/sum, w)
	}
	return w, nil
}

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


package stats

import (
	"math"

	"github.com/ocalfw/prnu/internal/frame"
	"gonum.org/v1/gonum/stat"
)

// Mean of the values not flagged in bad. NaN if all values are flagged.
// A nil bad slice flags nothing
func MaskedMean(values []float64, bad []bool) float64 {
	buf := make([]float64, 0, len(values))
	for i, v := range values {
		if bad != nil && bad[i] {
			continue
		}
		buf = append(buf, v)
	}
	return meanOrNaN(buf)
}

func meanOrNaN(buf []float64) float64 {
	if len(buf) == 0 {
		return math.NaN()
	}
	return stat.Mean(buf, nil)
}

// Calculates the mean of the unmasked entries of each region column into out.
// len(out) must equal the number of region columns. Fully masked columns yield NaN
func ColumnMeans(out []float64, f *frame.Frame, m *frame.Mask, region frame.Region, maxThreads int) error {
	if err := frame.CheckShape(f, m); err != nil {
		return err
	}
	if len(out) != region.NumCols() {
		return lengthError("column factors", len(out), region.NumCols())
	}
	ParallelFor(len(out), maxThreads, func(lower, upper int) {
		buf := make([]float64, 0, region.NumRows())
		for c := lower; c < upper; c++ {
			col := region.Cols.Start + c
			buf = buf[:0]
			for row := region.Rows.Start; row < region.Rows.Stop; row++ {
				i := row*f.Cols + col
				if !m.Bad[i] {
					buf = append(buf, f.Data[i])
				}
			}
			out[c] = meanOrNaN(buf)
		}
	})
	return nil
}

// Calculates for each region row the mean over region columns of value / column factor into out.
// Masked pixels are skipped, as are columns whose factor is NaN or zero. Rows with nothing left yield NaN
func RowMeansOfRatios(out []float64, f *frame.Frame, m *frame.Mask, region frame.Region, colFactors []float64, maxThreads int) error {
	if err := frame.CheckShape(f, m); err != nil {
		return err
	}
	if len(out) != region.NumRows() {
		return lengthError("row factors", len(out), region.NumRows())
	}
	if len(colFactors) != region.NumCols() {
		return lengthError("column factors", len(colFactors), region.NumCols())
	}
	ParallelFor(len(out), maxThreads, func(lower, upper int) {
		buf := make([]float64, 0, region.NumCols())
		for r := lower; r < upper; r++ {
			row := region.Rows.Start + r
			buf = buf[:0]
			for c, factor := range colFactors {
				i := row*f.Cols + region.Cols.Start + c
				if m.Bad[i] || factor == 0 || math.IsNaN(factor) {
					continue
				}
				buf = append(buf, f.Data[i]/factor)
			}
			out[r] = meanOrNaN(buf)
		}
	})
	return nil
}

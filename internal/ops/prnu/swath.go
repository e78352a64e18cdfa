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


package prnu

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ocalfw/prnu/internal/frame"
	"github.com/ocalfw/prnu/internal/ops"
	"github.com/ocalfw/prnu/internal/stats"
)

// Step 1: removes swath dependent signal variations. Calculates the column normalization
// factors, then the row normalization factors from the column-normalized region, and
// divides each region row of the full-width signal by its row factor
type OpRemoveSwath struct {
	ops.OpBase
	HistogramBins int `json:"histogramBins"` // if >1, estimate mode and width of the row-normalized signal from a histogram with this many bins
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRemoveSwathDefaults() }) } // register the operator for JSON decoding

func NewOpRemoveSwathDefaults() *OpRemoveSwath { return NewOpRemoveSwath(0) }

func NewOpRemoveSwath(histogramBins int) *OpRemoveSwath {
	return &OpRemoveSwath{
		OpBase:        ops.OpBase{Type: TypeRemoveSwath, Active: true},
		HistogramBins: histogramBins,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRemoveSwath) UnmarshalJSON(data []byte) error {
	type defaults OpRemoveSwath
	def := defaults(*NewOpRemoveSwathDefaults())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpRemoveSwath(def)
	return nil
}

func (op *OpRemoveSwath) Apply(d *ops.Data, c *ops.Context) (ops.Result, error) {
	s := d.Signal
	if err := frame.CheckShape(s.Frame, s.Mask); err != nil {
		return nil, err
	}

	// column normalization factor
	if err := stats.ColumnMeans(s.FNormCol, s.Frame, s.Mask, s.Region, c.MaxThreads); err != nil {
		return nil, err
	}
	colSummary := stats.NewSummary(s.FNormCol)
	fmt.Fprintf(c.Log, "%d: Column normalization factors %v\n", d.ID, colSummary)

	// row normalization factor, from the column-normalized region
	if err := stats.RowMeansOfRatios(s.FNormRow, s.Frame, s.Mask, s.Region, s.FNormCol, c.MaxThreads); err != nil {
		return nil, err
	}
	rowSummary := stats.NewSummary(s.FNormRow)
	fmt.Fprintf(c.Log, "%d: Row normalization factors %v\n", d.ID, rowSummary)

	// row normalization of the pixel data across all columns
	rowNorm, err := RowNormalize(s.Frame, s.IndexRow, s.FNormRow)
	if err != nil {
		return nil, err
	}
	d.RowNorm = rowNorm
	normSummary := stats.NewSummary(rowNorm.Data)
	fmt.Fprintf(c.Log, "%d: Row normalized %s signal %v\n", d.ID, rowNorm.DimensionsToString(), normSummary)

	if op.HistogramBins > 1 {
		op.logDistribution(d, c, normSummary)
	}

	return ops.Computed{
		Stage: op.Type,
		Outputs: map[string]stats.Summary{
			"fNormCol":      colSummary,
			"fNormRow":      rowSummary,
			"signalRowNorm": normSummary,
		},
	}, nil
}

// Divides each given frame row by its factor. Row i of the result is frame row rows[i] over factors[i].
// Zero or NaN factors give NaN rows
func RowNormalize(f *frame.Frame, rows []int, factors []float64) (*frame.Frame, error) {
	if len(rows) != len(factors) {
		return nil, fmt.Errorf("%w: %d rows, %d factors", frame.ErrShapeMismatch, len(rows), len(factors))
	}
	res, err := frame.NewFrame(len(rows), f.Cols, nil)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if row < 0 || row >= f.Rows {
			return nil, fmt.Errorf("%w: row %d outside frame %s", frame.ErrInvalidRegion, row, f.DimensionsToString())
		}
		dst, src := res.Row(i), f.Row(row)
		factor := factors[i]
		if factor == 0 || math.IsNaN(factor) {
			for col := range dst {
				dst[col] = math.NaN()
			}
			continue
		}
		for col, v := range src {
			dst[col] = v / factor
		}
	}
	return res, nil
}

// Logs mode and width of the row-normalized signal from a histogram fit
func (op *OpRemoveSwath) logDistribution(d *ops.Data, c *ops.Context, s stats.Summary) {
	if !(s.Max > s.Min) {
		fmt.Fprintf(c.Log, "%d: Row normalized signal is constant at %.6g\n", d.ID, s.Min)
		return
	}
	bins := make([]int32, op.HistogramBins)
	stats.Histogram(d.RowNorm.Data, s.Min, s.Max, bins)
	mode, stdDev, err := stats.GetModeStdDevFromHistogram(bins, s.Min, s.Max)
	if err != nil {
		fmt.Fprintf(c.Log, "%d: Warning: histogram fit failed: %s\n", d.ID, err.Error())
		return
	}
	fmt.Fprintf(c.Log, "%d: Row normalized signal mode %.6g width %.6g (%d bins)\n", d.ID, mode, stdDev, len(bins))
}

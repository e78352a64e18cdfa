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

// Step 7: inverse row normalization. Multiplies each row of the smoothed row-normalized
// signal by its row normalization factor. While steps 3 to 6 produce no smoothed grid,
// the smoothed signal is taken as unity, so each output row equals its row factor
type OpInverseRowNorm struct {
	ops.OpBase
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpInverseRowNormDefaults() }) } // register the operator for JSON decoding

func NewOpInverseRowNormDefaults() *OpInverseRowNorm {
	return &OpInverseRowNorm{OpBase: ops.OpBase{Type: TypeInverseRowNorm, Active: true}}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpInverseRowNorm) UnmarshalJSON(data []byte) error {
	type defaults OpInverseRowNorm
	def := defaults(*NewOpInverseRowNormDefaults())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpInverseRowNorm(def)
	return nil
}

func (op *OpInverseRowNorm) Apply(d *ops.Data, c *ops.Context) (ops.Result, error) {
	if d.RowNorm == nil {
		return nil, fmt.Errorf("%w: row normalization factors, run %s first", ops.ErrMissingInput, TypeRemoveSwath)
	}
	factors := d.RowFactors()
	smooth, err := frame.NewFrameConst(len(factors), d.Signal.Frame.Cols, 1)
	if err != nil {
		return nil, err
	}
	if err = InverseRowNormalize(smooth, factors); err != nil {
		return nil, err
	}
	d.Smooth = smooth
	s := stats.NewSummary(smooth.Data)
	fmt.Fprintf(c.Log, "%d: Inverse row normalized %s signal %v\n", d.ID, smooth.DimensionsToString(), s)
	return ops.Computed{Stage: op.Type, Outputs: map[string]stats.Summary{"smooth": s}}, nil
}

// Multiplies row i of f by factors[i], in place. NaN factors give NaN rows
func InverseRowNormalize(f *frame.Frame, factors []float64) error {
	if f.Rows != len(factors) {
		return fmt.Errorf("%w: %s frame, %d factors", frame.ErrShapeMismatch, f.DimensionsToString(), len(factors))
	}
	for i, factor := range factors {
		row := f.Row(i)
		if math.IsNaN(factor) {
			for col := range row {
				row[col] = math.NaN()
			}
			continue
		}
		for col := range row {
			row[col] *= factor
		}
	}
	return nil
}

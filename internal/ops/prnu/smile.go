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

	"github.com/ocalfw/prnu/internal/calib"
	"github.com/ocalfw/prnu/internal/frame"
	"github.com/ocalfw/prnu/internal/ops"
	"github.com/ocalfw/prnu/internal/stats"
)

// Step 2: prepares removal of the smile effect. Builds the spectral calibration map and
// pairs each region pixel with its row, wavelength and row-normalized signal
type OpRemoveSmile struct {
	ops.OpBase
	Formula calib.Formula `json:"formula"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRemoveSmileDefaults() }) } // register the operator for JSON decoding

func NewOpRemoveSmileDefaults() *OpRemoveSmile { return NewOpRemoveSmile(calib.FormulaCosine) }

func NewOpRemoveSmile(formula calib.Formula) *OpRemoveSmile {
	return &OpRemoveSmile{
		OpBase:  ops.OpBase{Type: TypeRemoveSmile, Active: true},
		Formula: formula,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRemoveSmile) UnmarshalJSON(data []byte) error {
	type defaults OpRemoveSmile
	def := defaults(*NewOpRemoveSmileDefaults())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpRemoveSmile(def)
	return nil
}

func (op *OpRemoveSmile) Apply(d *ops.Data, c *ops.Context) (ops.Result, error) {
	if d.RowNorm == nil {
		return nil, fmt.Errorf("%w: row-normalized signal, run %s first", ops.ErrMissingInput, TypeRemoveSwath)
	}
	f := d.Signal.Frame

	scm, err := calib.Map(op.Formula, f.Rows, f.Cols)
	if err != nil {
		return nil, err
	}
	d.SCM = scm
	scmSummary := stats.NewSummary(scm.Data)
	fmt.Fprintf(c.Log, "%d: Spectral calibration map (%v) %v\n", d.ID, op.Formula, scmSummary)

	d.Mesh, err = BuildMesh(scm, d.RowNorm, d.Signal.IndexRow, d.Signal.IndexCol)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Log, "%d: Computed %d (row,wavelength) mesh points\n", d.ID, len(d.Mesh))

	wavelengths := make([]float64, len(d.Mesh))
	for i, p := range d.Mesh {
		wavelengths[i] = p.Wavelength
	}
	return ops.Computed{
		Stage: op.Type,
		Outputs: map[string]stats.Summary{
			"scm":            scmSummary,
			"meshWavelength": stats.NewSummary(wavelengths),
		},
	}, nil
}

// Enumerates the region pixels in row-major order. Point r*len(indexCol)+c carries row indexRow[r],
// the calibration map value at (indexRow[r], indexCol[c]) and the row-normalized signal there.
// rowNorm is indexed by position within indexRow, and by absolute column
func BuildMesh(scm, rowNorm *frame.Frame, indexRow, indexCol []int) ([]ops.MeshPoint, error) {
	if rowNorm.Rows != len(indexRow) || rowNorm.Cols != scm.Cols {
		return nil, fmt.Errorf("%w: row-normalized signal %s for %d region rows and %d columns",
			frame.ErrShapeMismatch, rowNorm.DimensionsToString(), len(indexRow), scm.Cols)
	}
	mesh := make([]ops.MeshPoint, 0, len(indexRow)*len(indexCol))
	for r, row := range indexRow {
		for _, col := range indexCol {
			mesh = append(mesh, ops.MeshPoint{
				Row:        row,
				Wavelength: scm.At(row, col),
				Signal:     rowNorm.At(r, col),
			})
		}
	}
	return mesh, nil
}

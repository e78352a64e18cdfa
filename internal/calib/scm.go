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
	"encoding/json"
	"fmt"
	"math"

	"github.com/ocalfw/prnu/internal/frame"
)

// Closed-form spectral calibration map, mapping detector (row, col) to a wavelength-like scalar.
// None of the candidate forms is derived from a physical model; the choice is a policy setting
type Formula int

const (
	FormulaCosine     Formula = iota // 0.01*(col + 10*cos(0.5*rows - row)). Default
	FormulaElliptical                // 10*sqrt((0.5*rows - row)^2 + (col)^2), an ellipse centered on the middle row
	FormulaLinear                    // 0.01*col, no smile
)

var formulaNames = map[Formula]string{
	FormulaCosine:     "cosine",
	FormulaElliptical: "elliptical",
	FormulaLinear:     "linear",
}

// All known formulas, in declaration order
func Formulas() []Formula { return []Formula{FormulaCosine, FormulaElliptical, FormulaLinear} }

// Reports whether f is one of the known formulas
func (f Formula) Valid() bool {
	_, ok := formulaNames[f]
	return ok
}

func (f Formula) String() string {
	if n, ok := formulaNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Formula(%d)", int(f))
}

// Parses a formula from its name
func ParseFormula(name string) (Formula, error) {
	for f, n := range formulaNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown spectral calibration formula '%s'", name)
}

func (f Formula) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("unknown spectral calibration formula %d", int(f))
	}
	return json.Marshal(f.String())
}

func (f *Formula) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseFormula(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Evaluates the formula at the given pixel of a detector with numRows rows. NaN for unknown formulas
func (f Formula) Eval(row, col, numRows int) float64 {
	r, c := float64(row), float64(col)
	half := 0.5 * float64(numRows)
	switch f {
	case FormulaElliptical:
		return Ellipse(half-r, 1.5*c, 0, 0.5*c, 10, 1, 1)
	case FormulaLinear:
		return 0.01 * c
	case FormulaCosine:
		return 0.01 * (c + 10*math.Cos(half-r))
	default:
		return math.NaN()
	}
}

// Generalized ellipse distance a0*sqrt(a1*(x-x0)^2 + a2*(y-y0)^2)
func Ellipse(x, y, x0, y0, a0, a1, a2 float64) float64 {
	return a0 * math.Sqrt(a1*(x-x0)*(x-x0)+a2*(y-y0)*(y-y0))
}

// Builds the spectral calibration map for the full frame
func Map(f Formula, rows, cols int) (*frame.Frame, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("unknown spectral calibration formula %d", int(f))
	}
	scm, err := frame.NewFrame(rows, cols, nil)
	if err != nil {
		return nil, err
	}
	for row := 0; row < rows; row++ {
		r := scm.Row(row)
		for col := range r {
			r[col] = f.Eval(row, col, rows)
		}
	}
	return scm, nil
}

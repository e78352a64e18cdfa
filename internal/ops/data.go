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


package ops

import (
	"github.com/ocalfw/prnu/internal/frame"
)

// One point of the irregular (row, wavelength) mesh
type MeshPoint struct {
	Row        int     `json:"row"`        // Absolute detector row
	Wavelength float64 `json:"wavelength"` // Calibration map value at the pixel
	Signal     float64 `json:"signal"`     // Row-normalized signal at the pixel
}

// Working state of a single pipeline run. Owned by the run; each stage reads the
// outputs of earlier stages and adds its own
type Data struct {
	ID     int           // Sequential ID number, for log output
	Signal *frame.Signal // Input signal, mask, region and the normalization factors

	RowNorm *frame.Frame // Row-normalized signal: region rows x all frame columns
	SCM     *frame.Frame // Spectral calibration map for the full frame
	Mesh    []MeshPoint  // (row, wavelength, signal) points, region pixels in row-major order
	Smooth  *frame.Frame // Signal after inverse row normalization: region rows x all frame columns
	PRNU    *frame.Frame // PRNU calibration key data. Never computed, stays nil

	Results []Result // Stage results in execution order
}

func NewData(id int, s *frame.Signal) *Data {
	return &Data{ID: id, Signal: s}
}

// Column normalization factors, one per region column
func (d *Data) ColFactors() []float64 { return d.Signal.FNormCol }

// Row normalization factors, one per region row
func (d *Data) RowFactors() []float64 { return d.Signal.FNormRow }

// Result of the given stage type, or nil if it has not run
func (d *Data) Result(stage string) Result {
	for _, r := range d.Results {
		if r.StageType() == stage {
			return r
		}
	}
	return nil
}

// Everything a downstream consumer gets from a run
type Output struct {
	ID         int
	Region     frame.Region
	IndexRow   []int
	IndexCol   []int
	ColFactors []float64
	RowFactors []float64
	RowNorm    *frame.Frame
	SCM        *frame.Frame
	Mesh       []MeshPoint
	Smooth     *frame.Frame
	Results    []Result
}

func (d *Data) Output() *Output {
	return &Output{
		ID:         d.ID,
		Region:     d.Signal.Region,
		IndexRow:   d.Signal.IndexRow,
		IndexCol:   d.Signal.IndexCol,
		ColFactors: d.ColFactors(),
		RowFactors: d.RowFactors(),
		RowNorm:    d.RowNorm,
		SCM:        d.SCM,
		Mesh:       d.Mesh,
		Smooth:     d.Smooth,
		Results:    d.Results,
	}
}

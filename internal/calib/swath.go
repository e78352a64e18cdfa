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
	"math"

	"github.com/ocalfw/prnu/internal/frame"
)

// Generalized sine a0 + a1*sin(a2*x + a3), including offsets and scale factors
func Sin(x, a0, a1, a2, a3 float64) float64 {
	return a0 + a1*math.Sin(a2*x+a3)
}

// Amplitude of the synthetic swath variation
const SwathAmplitude = 20.0

// Smooth column-dependent illumination trend: every row carries
// SwathAmplitude*sin(2*col/cols)
func SwathMap(rows, cols int) (*frame.Frame, error) {
	swath, err := frame.NewFrame(rows, cols, nil)
	if err != nil {
		return nil, err
	}
	profile := make([]float64, cols)
	for col := range profile {
		profile[col] = Sin(float64(col), 0, SwathAmplitude, 2.0/float64(cols), 0)
	}
	for row := 0; row < rows; row++ {
		copy(swath.Row(row), profile)
	}
	return swath, nil
}

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


package synth

import (
	"fmt"

	"github.com/ocalfw/prnu/internal/calib"
	"github.com/ocalfw/prnu/internal/frame"
	"github.com/pbnjay/memory"
	"github.com/valyala/fastrand"
)

// Default synthetic detector size: 1024 rows, 600 columns
const (
	DefaultRows = 1024
	DefaultCols = 600
)

// Bytes needed per frame pixel across a pipeline run: signal, swath,
// calibration map, row-normalized and smoothed copies, plus the mask
const bytesPerPixel = 5*8 + 1

// Returns an error if a frame of the given size would not fit into limitMiB.
// limitMiB<=0 uses 70% of physical memory
func CheckMemory(rows, cols int, limitMiB int) error {
	if limitMiB <= 0 {
		limitMiB = int(memory.TotalMemory() / 1024 / 1024 * 7 / 10)
	}
	needMiB := (int64(rows)*int64(cols)*bytesPerPixel + 1024*1024 - 1) / (1024 * 1024)
	if limitMiB > 0 && needMiB > int64(limitMiB) {
		return fmt.Errorf("%w: %dx%d frame needs %d MiB, limit is %d MiB",
			frame.ErrInvalidFrame, rows, cols, needMiB, limitMiB)
	}
	return nil
}

// Generates a frame of uniform random samples in [0,1). Equal non-zero seeds give equal frames,
// a zero seed picks a random one
func Uniform(rows, cols int, seed uint32) (*frame.Frame, error) {
	f, err := frame.NewFrame(rows, cols, nil)
	if err != nil {
		return nil, err
	}
	rng := fastrand.RNG{}
	rng.Seed(seed)
	for i := range f.Data {
		f.Data[i] = float64(rng.Uint32()) / (1 << 32)
	}
	return f, nil
}

// Generates the inputs for a synthetic detector signal: uniform noise and the swath
// variation to be added on top of it
func Generate(rows, cols int, seed uint32, limitMiB int) (noise, swath *frame.Frame, err error) {
	if err = CheckMemory(rows, cols, limitMiB); err != nil {
		return nil, nil, err
	}
	if noise, err = Uniform(rows, cols, seed); err != nil {
		return nil, nil, err
	}
	if swath, err = calib.SwathMap(rows, cols); err != nil {
		return nil, nil, err
	}
	return noise, swath, nil
}

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
	"fmt"
	"io"
	"math"
)

// Detector signal with its pixel quality mask and the region of interest
// selected for calibration statistics. Buffers sized by the region are
// reallocated whenever the region changes.
type Signal struct {
	Frame     *Frame  // Detector signal for the full frame, swath term included
	Swath     *Frame  // Additive swath variation that was applied, if any
	Mask      *Mask   // Pixel quality mask for the full frame
	Region    Region  // Region of interest
	Threshold float64 // Bad pixel threshold the mask was derived from. NaN if the mask was given explicitly

	IndexRow []int     // Absolute row number for each region row
	IndexCol []int     // Absolute column number for each region column
	FNormRow []float64 // Row normalization factor per region row
	FNormCol []float64 // Column normalization factor per region column

	derivedMask bool
}

// Creates a signal from the given frame, deriving the mask from the threshold
func NewSignal(f *Frame, region Region, threshold float64) (*Signal, error) {
	if err := region.Validate(f.Rows, f.Cols); err != nil {
		return nil, err
	}
	s := &Signal{
		Frame:       f,
		Mask:        NewThresholdMask(f, threshold),
		Threshold:   threshold,
		derivedMask: true,
	}
	s.allocate(region)
	return s, nil
}

// Creates a signal from the given frame and an explicit mask. The mask is
// kept as given when the signal changes
func NewSignalWithMask(f *Frame, m *Mask, region Region) (*Signal, error) {
	if err := CheckShape(f, m); err != nil {
		return nil, err
	}
	if err := region.Validate(f.Rows, f.Cols); err != nil {
		return nil, err
	}
	s := &Signal{Frame: f, Mask: m, Threshold: math.NaN()}
	s.allocate(region)
	return s, nil
}

// Replaces the signal. Recomputes a threshold-derived mask; an explicit mask must still match
func (s *Signal) SetSignal(f *Frame) error {
	if err := s.Region.Validate(f.Rows, f.Cols); err != nil {
		return err
	}
	if s.derivedMask {
		s.Frame = f
		s.Mask = NewThresholdMask(f, s.Threshold)
		return nil
	}
	if err := CheckShape(f, s.Mask); err != nil {
		return err
	}
	s.Frame = f
	return nil
}

// Adds the swath variation to the signal in place and refreshes the mask
func (s *Signal) AddSwath(swath *Frame) error {
	if err := s.Frame.Add(swath); err != nil {
		return err
	}
	s.Swath = swath
	return s.SetSignal(s.Frame)
}

// Changes the region of interest. Reallocates the index and factor buffers
func (s *Signal) SetRegion(region Region) error {
	if err := region.Validate(s.Frame.Rows, s.Frame.Cols); err != nil {
		return err
	}
	s.allocate(region)
	return nil
}

func (s *Signal) allocate(region Region) {
	s.Region = region
	s.IndexRow = region.Rows.Indices()
	s.IndexCol = region.Cols.Indices()
	s.FNormRow = make([]float64, region.NumRows())
	s.FNormCol = make([]float64, region.NumCols())
}

// Prints a summary of the signal properties
func (s *Signal) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "Signal %s (%d pixels), %d bad pixels, region %v (%dx%d)\n",
		s.Frame.DimensionsToString(), len(s.Frame.Data), s.Mask.Count(),
		s.Region, s.Region.NumRows(), s.Region.NumCols())
}

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
	"errors"
	"math"
	"testing"
)

func TestRegionValidate(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		ok     bool
	}{
		{"inside", NewRegion(100, 500, 200, 500), true},
		{"full frame", NewRegion(0, 1024, 0, 600), true},
		{"empty rows", NewRegion(10, 10, 0, 10), false},
		{"reversed cols", NewRegion(0, 10, 20, 10), false},
		{"rows beyond frame", NewRegion(1000, 1025, 0, 10), false},
		{"negative start", NewRegion(-1, 10, 0, 10), false},
		{"cols beyond frame", NewRegion(0, 10, 590, 601), false},
	}
	for _, test := range tests {
		err := test.region.Validate(1024, 600)
		if test.ok && err != nil {
			t.Errorf("%s: Validate()=%v; want nil", test.name, err)
		}
		if !test.ok {
			if !errors.Is(err, ErrInvalidRegion) {
				t.Errorf("%s: Validate()=%v; want ErrInvalidRegion", test.name, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("%s: Validate()=%T; want *ValidationError", test.name, err)
			}
		}
	}
}

func TestRangeIndices(t *testing.T) {
	idx := Range{Start: 3, Stop: 7}.Indices()
	if len(idx) != 4 {
		t.Fatalf("len=%d; want 4", len(idx))
	}
	for i, v := range idx {
		if v != 3+i {
			t.Errorf("idx[%d]=%d; want %d", i, v, 3+i)
		}
	}
	if got := (Range{Start: 5, Stop: 5}).Indices(); got != nil {
		t.Errorf("empty range indices=%v; want nil", got)
	}
}

func TestThresholdMask(t *testing.T) {
	f, _ := NewFrame(2, 3, []float64{0.5, 0.05, 1, math.NaN(), 0.1, 0.099})
	m := NewThresholdMask(f, DefaultBadPixelThreshold)
	want := []bool{false, true, false, true, false, true}
	for i, w := range want {
		if m.Bad[i] != w {
			t.Errorf("bad[%d]=%v; want %v", i, m.Bad[i], w)
		}
	}
	if m.Count() != 3 {
		t.Errorf("count=%d; want 3", m.Count())
	}
}

func TestNewFrameErrors(t *testing.T) {
	if _, err := NewFrame(0, 10, nil); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("NewFrame(0,10)=%v; want ErrInvalidFrame", err)
	}
	if _, err := NewFrame(2, 2, make([]float64, 3)); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("NewFrame with 3 samples for 2x2=%v; want ErrInvalidFrame", err)
	}
}

func TestSignalShapeMismatch(t *testing.T) {
	f, _ := NewFrameConst(10, 8, 1)
	m := NewMask(10, 7)
	if _, err := NewSignalWithMask(f, m, NewRegion(0, 5, 0, 5)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("NewSignalWithMask=%v; want ErrShapeMismatch", err)
	}

	s, err := NewSignal(f, NewRegion(0, 5, 0, 5), DefaultBadPixelThreshold)
	if err != nil {
		t.Fatal(err)
	}
	other, _ := NewFrameConst(10, 9, 1)
	if err := s.AddSwath(other); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("AddSwath=%v; want ErrShapeMismatch", err)
	}
}

func TestSignalAddSwathRecomputesMask(t *testing.T) {
	f, _ := NewFrameConst(4, 4, 0.05)
	s, err := NewSignal(f, NewRegion(0, 4, 0, 4), DefaultBadPixelThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if s.Mask.Count() != 16 {
		t.Fatalf("bad pixels before swath=%d; want 16", s.Mask.Count())
	}
	swath, _ := NewFrameConst(4, 4, 1)
	if err := s.AddSwath(swath); err != nil {
		t.Fatal(err)
	}
	if s.Mask.Count() != 0 {
		t.Errorf("bad pixels after swath=%d; want 0", s.Mask.Count())
	}
	if math.Abs(s.Frame.At(2, 3)-1.05) > 1e-12 {
		t.Errorf("signal=%v; want 1.05", s.Frame.At(2, 3))
	}
}

func TestSignalSetRegion(t *testing.T) {
	f, _ := NewFrameConst(20, 10, 1)
	s, err := NewSignal(f, NewRegion(0, 5, 0, 5), DefaultBadPixelThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetRegion(NewRegion(2, 12, 3, 6)); err != nil {
		t.Fatal(err)
	}
	if len(s.FNormRow) != 10 || len(s.IndexRow) != 10 {
		t.Errorf("row buffers %d/%d; want 10", len(s.FNormRow), len(s.IndexRow))
	}
	if len(s.FNormCol) != 3 || len(s.IndexCol) != 3 {
		t.Errorf("col buffers %d/%d; want 3", len(s.FNormCol), len(s.IndexCol))
	}
	if s.IndexRow[0] != 2 || s.IndexCol[2] != 5 {
		t.Errorf("indices start %d, end %d; want 2, 5", s.IndexRow[0], s.IndexCol[2])
	}
	if err := s.SetRegion(NewRegion(0, 21, 0, 5)); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("SetRegion out of bounds=%v; want ErrInvalidRegion", err)
	}
	if s.Region.Rows.Stop != 12 {
		t.Errorf("region changed on failed SetRegion: %v", s.Region)
	}
}

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
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Basic statistics of a slice, ignoring NaNs
type Summary struct {
	Count  int     `json:"count"`  // Number of values, NaNs included
	NaNs   int     `json:"nans"`   // Number of NaN values
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stdDev"`
}

// Calculates min, mean, max and standard deviation over the non-NaN values
func NewSummary(data []float64) Summary {
	s := Summary{Count: len(data)}
	finite := make([]float64, 0, len(data))
	for _, v := range data {
		if math.IsNaN(v) {
			s.NaNs++
			continue
		}
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		s.Min, s.Mean, s.Max, s.StdDev = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Min, s.Max = finite[0], finite[0]
	for _, v := range finite[1:] {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean, s.StdDev = stat.PopMeanStdDev(finite, nil)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("n=%d nan=%d min=%.6g mean=%.6g max=%.6g sdev=%.6g",
		s.Count, s.NaNs, s.Min, s.Mean, s.Max, s.StdDev)
}

// Marshals the summary with NaN statistics as JSON null
func (s Summary) MarshalJSON() ([]byte, error) {
	type nullable struct {
		Count  int      `json:"count"`
		NaNs   int      `json:"nans"`
		Min    *float64 `json:"min"`
		Mean   *float64 `json:"mean"`
		Max    *float64 `json:"max"`
		StdDev *float64 `json:"stdDev"`
	}
	return json.Marshal(nullable{s.Count, s.NaNs, Nullable(s.Min), Nullable(s.Mean), Nullable(s.Max), Nullable(s.StdDev)})
}

// Returns nil for NaN and infinite values, else a pointer to v. For JSON output
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Converts a slice with nil in place of NaN and infinite values
func NullableSlice(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = Nullable(v)
	}
	return out
}

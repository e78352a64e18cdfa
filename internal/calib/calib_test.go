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
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestFormulaEval(t *testing.T) {
	tests := []struct {
		f        Formula
		row, col int
		want     float64
	}{
		{FormulaCosine, 512, 0, 0.1},
		{FormulaCosine, 512, 100, 1.1},
		{FormulaCosine, 0, 0, 0.1 * math.Cos(512)},
		{FormulaLinear, 7, 250, 2.5},
		{FormulaElliptical, 512, 30, 300},
		{FormulaElliptical, 0, 0, 5120},
	}
	for _, test := range tests {
		got := test.f.Eval(test.row, test.col, 1024)
		if math.Abs(got-test.want) > 1e-9 {
			t.Errorf("%v.Eval(%d,%d)=%v; want %v", test.f, test.row, test.col, got, test.want)
		}
	}
}

func TestMap(t *testing.T) {
	scm, err := Map(FormulaLinear, 4, 5)
	if err != nil {
		t.Fatal(err)
	}
	if scm.Rows != 4 || scm.Cols != 5 {
		t.Fatalf("shape %s; want 4x5", scm.DimensionsToString())
	}
	if math.Abs(scm.At(3, 4)-0.04) > 1e-15 {
		t.Errorf("scm[3,4]=%v; want 0.04", scm.At(3, 4))
	}
	if _, err := Map(FormulaCosine, 0, 5); err == nil {
		t.Errorf("Map with zero rows succeeded")
	}
	if _, err := Map(Formula(7), 4, 5); err == nil {
		t.Errorf("Map with unknown formula succeeded")
	}
	if v := Formula(7).Eval(1, 2, 4); !math.IsNaN(v) {
		t.Errorf("unknown formula evaluated to %v; want NaN", v)
	}
}

func TestFormulaJSON(t *testing.T) {
	for _, f := range Formulas() {
		b, err := json.Marshal(f)
		if err != nil {
			t.Fatal(err)
		}
		var back Formula
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatal(err)
		}
		if back != f {
			t.Errorf("%s decoded as %v", string(b), back)
		}
	}
	var f Formula
	if err := json.Unmarshal([]byte(`"parabolic"`), &f); err == nil {
		t.Errorf("unknown formula decoded as %v", f)
	}
	if p, err := ParseFormula("elliptical"); err != nil || p != FormulaElliptical {
		t.Errorf("ParseFormula(elliptical)=%v, %v", p, err)
	}
}

func TestSwathMap(t *testing.T) {
	swath, err := SwathMap(3, 600)
	if err != nil {
		t.Fatal(err)
	}
	if swath.At(0, 0) != 0 {
		t.Errorf("swath[0,0]=%v; want 0", swath.At(0, 0))
	}
	want := 20 * math.Sin(2.0*300/600)
	if math.Abs(swath.At(2, 300)-want) > 1e-12 {
		t.Errorf("swath[2,300]=%v; want %v", swath.At(2, 300), want)
	}
	if swath.At(1, 123) != swath.At(2, 123) {
		t.Errorf("swath differs between rows")
	}
}

func TestHanning(t *testing.T) {
	w := Hanning(5)
	want := []float64{0, 0.5, 1, 0.5, 0}
	for i := range w {
		if math.Abs(w[i]-want[i]) > 1e-12 {
			t.Errorf("w[%d]=%v; want %v", i, w[i], want[i])
		}
	}

	w2, err := HanningWindow2D(5, 7, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(w2) != 35 {
		t.Errorf("len=%d; want 35", len(w2))
	}
	if sum := floats.Sum(w2); math.Abs(sum-1) > 1e-12 {
		t.Errorf("sum=%v; want 1", sum)
	}
	if _, err := HanningWindow2D(2, 5, true); err == nil {
		t.Errorf("zero-sum window normalized without error")
	}
	if _, err := HanningWindow2D(0, 5, false); err == nil {
		t.Errorf("empty window without error")
	}
}

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


package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ocalfw/prnu/internal/calib"
	"github.com/ocalfw/prnu/internal/ops"
	"github.com/ocalfw/prnu/internal/ops/prnu"
)

func TestParseJSON5Defaults(t *testing.T) {
	in := `{
		// one small synthetic frame
		source: {synthetic: {rows: 64, cols: 48, seed: 9}},
		region: {rows: {start: 4, stop: 60}, cols: {start: 8, stop: 40}},
		formula: "elliptical",
	}`
	c, err := Parse([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if c.Source.Synthetic.Count != 1 || c.Source.Synthetic.Seed != 9 {
		t.Errorf("synthetic source %+v", *c.Source.Synthetic)
	}
	if c.Threshold != 0.1 {
		t.Errorf("threshold=%v; want 0.1", c.Threshold)
	}
	if c.Formula != calib.FormulaElliptical {
		t.Errorf("formula=%v; want elliptical", c.Formula)
	}
	if len(c.Pipeline.Steps) != 8 {
		t.Fatalf("default pipeline has %d steps; want 8", len(c.Pipeline.Steps))
	}
	if op := c.Pipeline.Steps[1].(*prnu.OpRemoveSmile); op.Formula != calib.FormulaElliptical {
		t.Errorf("pipeline formula=%v; want elliptical", op.Formula)
	}
}

func TestParseSyntheticDefaults(t *testing.T) {
	c, err := Parse([]byte(`{source: {synthetic: {}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Source.Synthetic.Rows != 1024 || c.Source.Synthetic.Cols != 600 {
		t.Errorf("synthetic dimensions %dx%d; want 1024x600", c.Source.Synthetic.Rows, c.Source.Synthetic.Cols)
	}
	if c.Region.Rows.Start != 100 || c.Region.Cols.Stop != 500 {
		t.Errorf("region %v; want default", c.Region)
	}
}

func TestParseExplicitPipeline(t *testing.T) {
	in := `{
		source: {synthetic: {rows: 32, cols: 32}},
		region: {rows: {start: 0, stop: 16}, cols: {start: 0, stop: 16}},
		pipeline: {type: "seq", steps: [{type: "removeSwath"}, {type: "inverseRowNorm"}]},
	}`
	c, err := Parse([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Pipeline.Steps) != 2 || c.Pipeline.Steps[1].GetType() != prnu.TypeInverseRowNorm {
		t.Errorf("pipeline steps %v", c.Pipeline.Steps)
	}

	ctx := &ops.Context{Log: &bytes.Buffer{}, MaxThreads: 1}
	job, ins, err := c.Job(ctx)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := job.RunAll(ins, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 1 || ds[0].Smooth == nil || ds[0].SCM != nil {
		t.Errorf("unexpected run output")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{
		`{`,
		`{}`,
		`{source: {synthetic: {}, files: ["*.fits"]}}`,
		`{source: {synthetic: {rows: -1}}}`,
		`{source: {synthetic: {rows: 200}}}`,
		`{source: {synthetic: {}}, formula: "parabolic"}`,
		`{source: {synthetic: {}}, region: {rows: {start: 5, stop: 5}}}`,
		`{source: {synthetic: {}}, maxThreads: -2}`,
		`{source: {synthetic: {}}, pipeline: {type: "seq", steps: [{type: "unknown"}]}}`,
		`{source: {synthetic: {}}, pipeline: {type: "seq", steps: []}}`,
	} {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Parse(%s)=%v; want ErrInvalidConfig", in, err)
		}
	}
}

func TestJobNoMatchingFiles(t *testing.T) {
	c, err := Parse([]byte(`{source: {files: ["no-such-dir/*.fits"]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Job(&ops.Context{Log: &bytes.Buffer{}}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Job=%v; want ErrInvalidConfig", err)
	}
}

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
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ocalfw/prnu/internal/frame"
)

// Test operator which counts its invocations and can fail on demand
type opCount struct {
	OpBase
	Fail  bool `json:"fail"`
	calls int
}

func init() {
	SetOperatorFactory(func() Operator { return &opCount{OpBase: OpBase{Type: "count", Active: true}} })
}

var errTest = errors.New("test failure")

func (op *opCount) Apply(d *Data, c *Context) (Result, error) {
	op.calls++
	if op.Fail {
		return nil, errTest
	}
	return Computed{Stage: op.Type}, nil
}

func newTestData(t *testing.T) *Data {
	f, err := frame.NewFrameConst(4, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	s, err := frame.NewSignal(f, frame.NewRegion(0, 4, 0, 4), frame.DefaultBadPixelThreshold)
	if err != nil {
		t.Fatal(err)
	}
	return NewData(1, s)
}

func TestOpSequenceJSON(t *testing.T) {
	in := `{"type":"seq","active":true,"steps":[{"type":"count","active":true},{"type":"count","active":false,"fail":true}]}`
	var seq OpSequence
	if err := json.Unmarshal([]byte(in), &seq); err != nil {
		t.Fatal(err)
	}
	if len(seq.Steps) != 2 {
		t.Fatalf("steps=%d; want 2", len(seq.Steps))
	}
	second, ok := seq.Steps[1].(*opCount)
	if !ok || second.IsActive() || !second.Fail {
		t.Errorf("second step decoded as %#v", seq.Steps[1])
	}

	out, err := json.Marshal(&seq)
	if err != nil {
		t.Fatal(err)
	}
	var back OpSequence
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-decoding %s: %v", string(out), err)
	}
	if len(back.Steps) != 2 || back.Steps[0].GetType() != "count" {
		t.Errorf("round trip gave %s", string(out))
	}

	var nested OpSequence
	if err := json.Unmarshal([]byte(`{"type":"seq","steps":[{"type":"seq","steps":[{"type":"count","active":true}]}]}`), &nested); err != nil {
		t.Fatal(err)
	}
	inner, ok := nested.Steps[0].(*OpSequence)
	if !nested.IsActive() || !ok || !inner.IsActive() || len(inner.Steps) != 1 {
		t.Errorf("sequence without active flag decoded as %#v", nested.Steps[0])
	}

	if err := json.Unmarshal([]byte(`{"type":"seq","steps":[{"type":"nope"}]}`), &back); err == nil {
		t.Errorf("unknown operator type decoded without error")
	}
}

func TestOpSequenceApply(t *testing.T) {
	first := &opCount{OpBase: OpBase{Type: "count", Active: true}}
	skipped := &opCount{OpBase: OpBase{Type: "count", Active: false}}
	failing := &opCount{OpBase: OpBase{Type: "count", Active: true}, Fail: true}
	last := &opCount{OpBase: OpBase{Type: "count", Active: true}}

	log := &bytes.Buffer{}
	c := &Context{Log: log, MaxThreads: 1}
	d := newTestData(t)
	_, err := NewOpSequence(first, skipped, failing, last).Apply(d, c)
	if !errors.Is(err, errTest) {
		t.Fatalf("Apply=%v; want test failure", err)
	}
	if first.calls != 1 || skipped.calls != 0 || failing.calls != 1 || last.calls != 0 {
		t.Errorf("calls %d %d %d %d; want 1 0 1 0", first.calls, skipped.calls, failing.calls, last.calls)
	}
	if len(d.Results) != 2 {
		t.Fatalf("results=%d; want 2", len(d.Results))
	}
	if _, ok := d.Results[1].(Skipped); !ok {
		t.Errorf("result[1]=%v; want skipped", d.Results[1])
	}
	if !strings.Contains(log.String(), "Skipping count") {
		t.Errorf("log %q does not mention skipped step", log.String())
	}
}

func TestResults(t *testing.T) {
	rs := []Result{
		Computed{Stage: "a"},
		NotImplemented{Stage: "b", Reason: "later"},
		Skipped{Stage: "c"},
	}
	want := []bool{true, false, false}
	for i, r := range rs {
		if IsImplemented(r) != want[i] {
			t.Errorf("IsImplemented(%v)=%v; want %v", r, !want[i], want[i])
		}
	}
	b, err := MarshalResults(rs)
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range []string{`"kind":"computed"`, `"kind":"notImplemented"`, `"kind":"skipped"`, `"reason":"later"`} {
		if !strings.Contains(string(b), kind) {
			t.Errorf("%s does not contain %s", string(b), kind)
		}
	}
}

func TestDataResultLookup(t *testing.T) {
	d := newTestData(t)
	d.Results = append(d.Results, NotImplemented{Stage: "x", Reason: "r"})
	if d.Result("x") == nil || d.Result("y") != nil {
		t.Errorf("Result lookup failed: %v", d.Results)
	}
	if len(d.ColFactors()) != 4 || len(d.RowFactors()) != 4 {
		t.Errorf("factor lengths %d, %d; want 4, 4", len(d.ColFactors()), len(d.RowFactors()))
	}
}

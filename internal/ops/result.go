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
	"encoding/json"
	"fmt"

	"github.com/ocalfw/prnu/internal/stats"
)

// Outcome of one pipeline stage. One of Computed, NotImplemented or Skipped
type Result interface {
	StageType() string
	String() string
	isResult()
}

// A stage that performed its arithmetic. Outputs summarizes each array the stage produced, by name
type Computed struct {
	Stage   string                   `json:"stage"`
	Outputs map[string]stats.Summary `json:"outputs,omitempty"`
}

// A placeholder stage of the algorithm with no computation behind it yet
type NotImplemented struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// A stage that was configured inactive and did not run
type Skipped struct {
	Stage string `json:"stage"`
}

func (r Computed) StageType() string       { return r.Stage }
func (r NotImplemented) StageType() string { return r.Stage }
func (r Skipped) StageType() string        { return r.Stage }

func (Computed) isResult()       {}
func (NotImplemented) isResult() {}
func (Skipped) isResult()        {}

func (r Computed) String() string {
	return fmt.Sprintf("%s: computed %d outputs", r.Stage, len(r.Outputs))
}

func (r NotImplemented) String() string {
	return fmt.Sprintf("%s: not implemented (%s)", r.Stage, r.Reason)
}

func (r Skipped) String() string { return fmt.Sprintf("%s: skipped", r.Stage) }

// True if the result stems from a stage that actually computed something
func IsImplemented(r Result) bool {
	_, ok := r.(Computed)
	return ok
}

// Marshals results with a "kind" discriminator
func MarshalResults(rs []Result) ([]byte, error) {
	type tagged struct {
		Kind   string `json:"kind"`
		Result Result `json:"result"`
	}
	out := make([]tagged, len(rs))
	for i, r := range rs {
		var kind string
		switch r.(type) {
		case Computed:
			kind = "computed"
		case NotImplemented:
			kind = "notImplemented"
		case Skipped:
			kind = "skipped"
		default:
			return nil, fmt.Errorf("unknown result type %T", r)
		}
		out[i] = tagged{Kind: kind, Result: r}
	}
	return json.Marshal(out)
}

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


package prnu

import (
	"encoding/json"
	"fmt"

	"github.com/ocalfw/prnu/internal/calib"
	"github.com/ocalfw/prnu/internal/ops"
)

// Operator type strings of the pipeline stages, in execution order
const (
	TypeRemoveSwath         = "removeSwath"         // step 1
	TypeRemoveSmile         = "removeSmile"         // step 2
	TypeSpectralIntensity   = "spectralIntensity"   // step 3
	TypeRemoveHighFreq      = "removeHighFreq"      // step 4
	TypeReintroduceHighFreq = "reintroduceHighFreq" // step 5
	TypeRegridDetector      = "regridDetector"      // step 6
	TypeInverseRowNorm      = "inverseRowNorm"      // step 7
	TypePRNUMap             = "prnuMap"             // step 8
)

// Stage types in execution order
var StageTypes = []string{
	TypeRemoveSwath, TypeRemoveSmile, TypeSpectralIntensity, TypeRemoveHighFreq,
	TypeReintroduceHighFreq, TypeRegridDetector, TypeInverseRowNorm, TypePRNUMap,
}

// Stage number 1..8 for a type string, or 0 if unknown
func StageNumber(t string) int {
	for i, s := range StageTypes {
		if s == t {
			return i + 1
		}
	}
	return 0
}

// A stage of the algorithm which has no computation behind it yet.
// Applying it records a NotImplemented result and leaves the data unchanged
type OpPending struct {
	ops.OpBase
	reason string
}

var pendingReasons = map[string]string{
	TypeSpectralIntensity:   "interpolation of the irregular (row, wavelength) mesh onto a regular grid",
	TypeReintroduceHighFreq: "reintroduction of the high frequency component onto the smoothed grid",
	TypeRegridDetector:      "regridding from the (row, wavelength) grid back onto detector pixels",
	TypePRNUMap:             "division of the signal by the inverse row-normalized smooth signal",
}

func init() { // register the operators for JSON decoding
	for _, t := range []string{TypeSpectralIntensity, TypeReintroduceHighFreq, TypeRegridDetector, TypePRNUMap} {
		t := t
		ops.SetOperatorFactory(func() ops.Operator { return NewOpPending(t) })
	}
}

func NewOpPending(t string) *OpPending {
	return &OpPending{
		OpBase: ops.OpBase{Type: t, Active: true},
		reason: pendingReasons[t],
	}
}

// Unmarshal the type from JSON, keeping the stage description
func (op *OpPending) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &op.OpBase); err != nil {
		return err
	}
	op.reason = pendingReasons[op.Type]
	return nil
}

func (op *OpPending) Apply(d *ops.Data, c *ops.Context) (ops.Result, error) {
	fmt.Fprintf(c.Log, "%d: Step %d %s not implemented: %s\n", d.ID, StageNumber(op.Type), op.Type, op.reason)
	return ops.NotImplemented{Stage: op.Type, Reason: op.reason}, nil
}

// Step 4: removal of the high frequency component with a 2D Hanning smoothing kernel.
// Validates the kernel, but performs no smoothing yet
type OpRemoveHighFreq struct {
	ops.OpBase
	KernelRows int `json:"kernelRows"`
	KernelCols int `json:"kernelCols"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRemoveHighFreqDefaults() }) } // register the operator for JSON decoding

func NewOpRemoveHighFreqDefaults() *OpRemoveHighFreq { return NewOpRemoveHighFreq(5, 5) }

func NewOpRemoveHighFreq(kernelRows, kernelCols int) *OpRemoveHighFreq {
	return &OpRemoveHighFreq{
		OpBase:     ops.OpBase{Type: TypeRemoveHighFreq, Active: true},
		KernelRows: kernelRows,
		KernelCols: kernelCols,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRemoveHighFreq) UnmarshalJSON(data []byte) error {
	type defaults OpRemoveHighFreq
	def := defaults(*NewOpRemoveHighFreqDefaults())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpRemoveHighFreq(def)
	return nil
}

func (op *OpRemoveHighFreq) Apply(d *ops.Data, c *ops.Context) (ops.Result, error) {
	kernel, err := calib.HanningWindow2D(op.KernelRows, op.KernelCols, true)
	if err != nil {
		return nil, err
	}
	reason := fmt.Sprintf("smoothing of the regular grid with a %dx%d Hanning kernel", op.KernelRows, op.KernelCols)
	fmt.Fprintf(c.Log, "%d: Step %d %s not implemented: %s (%d weights)\n", d.ID, StageNumber(op.Type), op.Type, reason, len(kernel))
	return ops.NotImplemented{Stage: op.Type, Reason: reason}, nil
}

// Builds the full eight stage pipeline, using the given calibration formula for step 2
func NewDefaultPipeline(formula calib.Formula) *ops.OpSequence {
	return ops.NewOpSequence(
		NewOpRemoveSwathDefaults(),
		NewOpRemoveSmile(formula),
		NewOpPending(TypeSpectralIntensity),
		NewOpRemoveHighFreqDefaults(),
		NewOpPending(TypeReintroduceHighFreq),
		NewOpPending(TypeRegridDetector),
		NewOpInverseRowNormDefaults(),
		NewOpPending(TypePRNUMap),
	)
}

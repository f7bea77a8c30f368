// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package quantize

// QuantizationParams holds the affine mapping between real values and
// integer codes:
//
//	real = Scale * (code - ZeroPoint)
//
// ZeroPoint is the code that represents real 0 exactly, Scale is the real
// distance between consecutive codes and Precision is the code width in bits.
// Values are produced by [ChooseQuantizationParams] and never mutated, so one
// value may be shared by any number of goroutines.
type QuantizationParams struct {
	Scale     float64 `json:"scale" yaml:"scale"`
	ZeroPoint int32   `json:"zero_point" yaml:"zero_point"`
	Precision int     `json:"precision" yaml:"precision"`
}

// Min returns the real value of code 0, the lowest code of an unsigned
// code space.
func (qp QuantizationParams) Min() float64 {
	return qp.Scale * float64(0-int64(qp.ZeroPoint))
}

// Max returns the real value of code 2^Precision-1, the highest code of an
// unsigned code space.
func (qp QuantizationParams) Max() float64 {
	return qp.Scale * float64(int64(1)<<qp.Precision-1-int64(qp.ZeroPoint))
}

// RequantizationParams describes a rescale from int32 accumulators into the
// code space of Target. RealMultiplier is used by the floating-point
// requantizer; Multiplier and RightShift encode the same factor as
//
//	RealMultiplier ≈ Multiplier / 2^RightShift
//
// for the fixed-point requantizer.
type RequantizationParams struct {
	RealMultiplier float64            `json:"real_multiplier" yaml:"real_multiplier"`
	Multiplier     int32              `json:"multiplier" yaml:"multiplier"`
	RightShift     int                `json:"right_shift" yaml:"right_shift"`
	Target         QuantizationParams `json:"target" yaml:"target"`
}

// NewRequantizationParams decomposes realMultiplier into a 32-bit fixed-point
// multiplier and bundles it with the target parameters.
func NewRequantizationParams(realMultiplier float64, target QuantizationParams) RequantizationParams {
	m, s := ChooseRequantizationMultiplier(realMultiplier, 32)
	return RequantizationParams{
		RealMultiplier: realMultiplier,
		Multiplier:     m,
		RightShift:     s,
		Target:         target,
	}
}

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

//go:build amd64 && goexperiment.simd

package quantize

import (
	"simd/archsimd"

	"github.com/ajroetker/go-highway-quant/hwy"
)

func init() {
	if hwy.CurrentLevel() >= hwy.DispatchAVX2 {
		findMinMaxVec = findMinMaxAVX2
	}
}

// findMinMaxAVX2 keeps running min/max accumulators in two Float32x8
// registers and reduces them once at the end. The sign of a zero result is
// fixed up by the caller.
func findMinMaxAVX2(src []float32) (lo, hi float32) {
	n := len(src)
	if n < 8 {
		return BaseFindMinMax(src)
	}

	minVec := archsimd.LoadFloat32x8Slice(src)
	maxVec := minVec
	i := 8
	for ; i+8 <= n; i += 8 {
		x := archsimd.LoadFloat32x8Slice(src[i:])
		minVec = minVec.Min(x)
		maxVec = maxVec.Max(x)
	}
	lo = hwy.ReduceMin_AVX2_F32x8(minVec)
	hi = hwy.ReduceMax_AVX2_F32x8(maxVec)

	// Scalar tail
	for ; i < n; i++ {
		if src[i] < lo {
			lo = src[i]
		}
		if src[i] > hi {
			hi = src[i]
		}
	}
	return lo, hi
}

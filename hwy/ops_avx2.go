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

package hwy

import (
	"simd/archsimd"
)

// This file provides low-level AVX2 reductions that work directly with
// archsimd vector types. Kernels that keep running min/max accumulators in
// registers call these once at the end of a buffer.

// ReduceMin_AVX2_F32x8 returns the smallest element in the vector.
func ReduceMin_AVX2_F32x8(v archsimd.Float32x8) float32 {
	// Reduce 8 -> 4 -> 1
	min4 := v.GetLo().Min(v.GetHi())
	m := min4.GetElem(0)
	for i := uint8(1); i < 4; i++ {
		if e := min4.GetElem(i); e < m {
			m = e
		}
	}
	return m
}

// ReduceMax_AVX2_F32x8 returns the largest element in the vector.
func ReduceMax_AVX2_F32x8(v archsimd.Float32x8) float32 {
	// Reduce 8 -> 4 -> 1
	max4 := v.GetLo().Max(v.GetHi())
	m := max4.GetElem(0)
	for i := uint8(1); i < 4; i++ {
		if e := max4.GetElem(i); e > m {
			m = e
		}
	}
	return m
}

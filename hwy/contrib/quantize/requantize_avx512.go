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
	"math"
	"simd/archsimd"

	"github.com/ajroetker/go-highway-quant/hwy"
)

// The fixed-point kernel needs 64-bit lane multiply, arithmetic shift and
// min/max, which AVX2 lacks. AVX2-only hosts keep the Base kernel.
func init() {
	if hwy.CurrentLevel() >= hwy.DispatchAVX512 {
		requantizeFixedBlock = requantizeFixedAVX512
	}
}

// requantizeFixedAVX512 runs the exact 64-bit product per lane. The clamp to
// [lo-zp, hi-zp] comes before adding zp, so the saturated MinInt32 pair
// cannot wrap.
func requantizeFixedAVX512(src []int32, dst []int64, multiplier int32, rightShift int, zp, lo, hi int64) int {
	s := min(max(rightShift, 0), maxShift)
	multVec := archsimd.BroadcastInt64x8(int64(multiplier))
	nudgeVec := archsimd.BroadcastInt64x8(roundingNudge(s))
	zpVec := archsimd.BroadcastInt64x8(zp)
	loVec := archsimd.BroadcastInt64x8(lo - zp)
	hiVec := archsimd.BroadcastInt64x8(hi - zp)

	// Only a MinInt32 multiplier can meet a MinInt32 accumulator.
	saturates := multiplier == math.MinInt32
	satIn := archsimd.BroadcastInt64x8(math.MinInt32)
	satOut := archsimd.BroadcastInt64x8(math.MaxInt64)

	var wide [8]int64
	n := len(src) &^ 7
	for i := 0; i < n; i += 8 {
		for j := range wide {
			wide[j] = int64(src[i+j])
		}
		a := archsimd.LoadInt64x8Slice(wide[:])
		r := a.Mul(multVec).Add(nudgeVec).ShiftAllRight(uint64(s))
		if saturates {
			r = satOut.Merge(r, a.Equal(satIn))
		}
		r.Max(loVec).Min(hiVec).Add(zpVec).StoreSlice(dst[i:])
	}
	return n
}

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
	if hwy.CurrentLevel() < hwy.DispatchAVX2 {
		return
	}
	quantizeBlock = quantizeAVX2
	dequantizeBlock = dequantizeAVX2
	requantizeBlock = requantizeAVX2
}

// The float kernels work on four float64 lanes: float32 inputs and int32
// accumulators widen exactly, and the arithmetic runs in the same order and
// precision as the element drivers.

// clampAVX2 saturates integral lanes into [lo, hi]. NaN lanes take lo, as
// they do in saturateInt64.
func clampAVX2(v, lo, hi archsimd.Float64x4) archsimd.Float64x4 {
	// Merge keeps v where the mask is set.
	v = v.Merge(lo, v.Equal(v))
	return v.Max(lo).Min(hi)
}

func quantizeAVX2(src []float32, dst []float64, zp, scale, lo, hi float64) int {
	zpVec := archsimd.BroadcastFloat64x4(zp)
	scaleVec := archsimd.BroadcastFloat64x4(scale)
	loVec := archsimd.BroadcastFloat64x4(lo)
	hiVec := archsimd.BroadcastFloat64x4(hi)

	var wide [4]float64
	n := len(src) &^ 3
	for i := 0; i < n; i += 4 {
		for j := range wide {
			wide[j] = float64(src[i+j])
		}
		x := archsimd.LoadFloat64x4Slice(wide[:])
		q := zpVec.Add(x.Div(scaleVec)).RoundToEven()
		clampAVX2(q, loVec, hiVec).StoreSlice(dst[i:])
	}
	return n
}

func dequantizeAVX2(src []float64, dst []float32, zp, scale float64) int {
	zpVec := archsimd.BroadcastFloat64x4(zp)
	scaleVec := archsimd.BroadcastFloat64x4(scale)

	var out [4]float64
	n := len(src) &^ 3
	for i := 0; i < n; i += 4 {
		x := archsimd.LoadFloat64x4Slice(src[i:])
		scaleVec.Mul(x.Sub(zpVec)).StoreSlice(out[:])
		for j, v := range out {
			dst[i+j] = float32(v)
		}
	}
	return n
}

func requantizeAVX2(src []int32, dst []float64, multiplier, zp, lo, hi float64) int {
	multVec := archsimd.BroadcastFloat64x4(multiplier)
	zpVec := archsimd.BroadcastFloat64x4(zp)
	loVec := archsimd.BroadcastFloat64x4(lo)
	hiVec := archsimd.BroadcastFloat64x4(hi)

	var wide [4]float64
	n := len(src) &^ 3
	for i := 0; i < n; i += 4 {
		for j := range wide {
			wide[j] = float64(src[i+j])
		}
		x := archsimd.LoadFloat64x4Slice(wide[:])
		r := zpVec.Add(x.Mul(multVec).RoundToEven())
		clampAVX2(r, loVec, hiVec).StoreSlice(dst[i:])
	}
	return n
}

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

import (
	"math"

	"github.com/ajroetker/go-highway-quant/hwy"
)

// This file holds the vectorized buffer kernels written against hwy.Vec.
// Each kernel promotes a block of lanes, runs the same IEEE operations the
// element drivers use in the same order, and narrows the result, so outputs
// are bit-identical to the scalar path. Tails shorter than a vector go
// through the element helpers.
//
// Callers have already checked preconditions; the kernels only read
// len(src) elements and write the same number into dst.

// findMinMaxVec is replaced by an archsimd reduction when one is available
// for the current dispatch level.
var findMinMaxVec = BaseFindMinMax

// BaseFindMinMax returns the smallest and largest element of src, which must
// not be empty.
func BaseFindMinMax(src []float32) (lo, hi float32) {
	n := len(src)
	lanes := hwy.NumLanes[float32]()
	lo, hi = src[0], src[0]

	i := 0
	if n >= lanes {
		minVec := hwy.Load(src)
		maxVec := minVec
		for i = lanes; i+lanes <= n; i += lanes {
			v := hwy.Load(src[i:])
			minVec = hwy.Min(minVec, v)
			maxVec = hwy.Max(maxVec, v)
		}
		lo, hi = hwy.ReduceMin(minVec), hwy.ReduceMax(maxVec)
	}

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

// BaseQuantize quantizes src into dst:
//
//	dst[i] = clamp(roundToEven(zp + src[i]/scale), lo, hi)
func BaseQuantize[T Quantized](src []float32, dst []T, zeroPoint int32, scale float64, lo, hi int64) {
	n := len(src)
	lanes := hwy.NumLanes[float64]()
	zp := float64(zeroPoint)
	zpVec := hwy.Set(zp)
	scaleVec := hwy.Set(scale)
	loVec := hwy.Set(float64(lo))
	hiVec := hwy.Set(float64(hi))

	buf := make([]float64, lanes)
	out := make([]float64, lanes)

	i := 0
	for ; i+lanes <= n; i += lanes {
		// Promote float32 → float64 into buffer
		for j := range lanes {
			buf[j] = float64(src[i+j])
		}

		v := hwy.Load(buf)
		q := hwy.Add(zpVec, hwy.Div(v, scaleVec))
		q = hwy.Clamp(hwy.RoundToEven(q), loVec, hiVec)

		// Narrow the integral, in-range lanes to T
		hwy.Store(q, out)
		for j := range lanes {
			dst[i+j] = T(out[j])
		}
	}

	// Scalar tail
	for ; i < n; i++ {
		dst[i] = quantizeOne[T](src[i], zp, scale, lo, hi)
	}
}

// BaseDequantize converts codes back to real values:
//
//	dst[i] = scale * (src[i] - zp)
func BaseDequantize[T Quantized](src []T, dst []float32, zeroPoint int32, scale float64) {
	n := len(src)
	lanes := hwy.NumLanes[float64]()
	zp := float64(zeroPoint)
	zpVec := hwy.Set(zp)
	scaleVec := hwy.Set(scale)

	buf := make([]float64, lanes)
	out := make([]float64, lanes)

	i := 0
	for ; i+lanes <= n; i += lanes {
		for j := range lanes {
			buf[j] = float64(src[i+j])
		}

		v := hwy.Mul(scaleVec, hwy.Sub(hwy.Load(buf), zpVec))
		hwy.Store(v, out)
		for j := range lanes {
			dst[i+j] = float32(out[j])
		}
	}

	// Scalar tail
	for ; i < n; i++ {
		dst[i] = dequantizeOne(src[i], zp, scale)
	}
}

// BaseRequantizeFixedPoint requantizes int32 accumulators with a fixed-point
// multiplier:
//
//	dst[i] = clamp(zp + SaturatingRoundingMulWithShift(src[i], multiplier, rightShift), lo, hi)
//
// The clamp is applied before adding zp so the saturated product never wraps.
func BaseRequantizeFixedPoint[T Quantized](src []int32, dst []T, multiplier int32, rightShift int, zeroPoint int32, lo, hi int64) {
	n := len(src)
	lanes := hwy.NumLanes[int64]()
	zp := int64(zeroPoint)
	s := min(max(rightShift, 0), maxShift)

	multVec := hwy.Set(int64(multiplier))
	nudgeVec := hwy.Set(roundingNudge(s))
	zpVec := hwy.Set(zp)
	loVec := hwy.Set(lo - zp)
	hiVec := hwy.Set(hi - zp)

	// Only a MinInt32 multiplier can meet a MinInt32 accumulator.
	saturates := multiplier == math.MinInt32
	satInVec := hwy.Set[int64](math.MinInt32)
	satOutVec := hwy.Set[int64](math.MaxInt64)

	buf := make([]int64, lanes)
	out := make([]int64, lanes)

	i := 0
	for ; i+lanes <= n; i += lanes {
		for j := range lanes {
			buf[j] = int64(src[i+j])
		}

		a := hwy.Load(buf)
		r := hwy.ShiftRight(hwy.Add(hwy.Mul(a, multVec), nudgeVec), s)
		if saturates {
			r = hwy.IfThenElse(hwy.Equal(a, satInVec), satOutVec, r)
		}
		r = hwy.Add(hwy.Clamp(r, loVec, hiVec), zpVec)

		hwy.Store(r, out)
		for j := range lanes {
			dst[i+j] = T(out[j])
		}
	}

	// Scalar tail
	for ; i < n; i++ {
		dst[i] = requantizeFixedOne[T](src[i], multiplier, rightShift, zp, lo, hi)
	}
}

// BaseRequantize requantizes int32 accumulators in floating point:
//
//	dst[i] = clamp(zp + roundToEven(src[i] * multiplier), lo, hi)
func BaseRequantize[T Quantized](src []int32, dst []T, multiplier float64, zeroPoint int32, lo, hi int64) {
	n := len(src)
	lanes := hwy.NumLanes[float64]()
	zp := float64(zeroPoint)
	multVec := hwy.Set(multiplier)
	zpVec := hwy.Set(zp)
	loVec := hwy.Set(float64(lo))
	hiVec := hwy.Set(float64(hi))

	buf := make([]float64, lanes)
	out := make([]float64, lanes)

	i := 0
	for ; i+lanes <= n; i += lanes {
		for j := range lanes {
			buf[j] = float64(src[i+j])
		}

		r := hwy.RoundToEven(hwy.Mul(hwy.Load(buf), multVec))
		r = hwy.Clamp(hwy.Add(zpVec, r), loVec, hiVec)

		hwy.Store(r, out)
		for j := range lanes {
			dst[i+j] = T(out[j])
		}
	}

	// Scalar tail
	for ; i < n; i++ {
		dst[i] = requantizeFloatOne[T](src[i], multiplier, zp, lo, hi)
	}
}

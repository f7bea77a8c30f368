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

import "math"

// The element-level drivers. Buffer drivers in kernels.go apply the same
// arithmetic per element, so an element here and the corresponding buffer
// element are always bit-identical.

// Quantize maps src to a code of type T using qp. The signedness of T picks
// the code range.
func Quantize[T Quantized](src float32, qp QuantizationParams) T {
	return QuantizeWith[T](src, qp.ZeroPoint, qp.Scale, qp.Precision, isSigned[T]())
}

// QuantizeWith computes zeroPoint + src/scale, rounds it to the nearest
// integer (ties to even) and saturates it into the precision-bit range of the
// given signedness.
func QuantizeWith[T Quantized](src float32, zeroPoint int32, scale float64, precision int, signed bool) T {
	if checked {
		requireClampTypes[int64, T]("Quantize", precision, signed)
	}
	lo, hi := Bounds(precision, signed)
	return quantizeOne[T](src, float64(zeroPoint), scale, lo, hi)
}

func quantizeOne[T Quantized](src float32, zp, scale float64, lo, hi int64) T {
	t := zp + float64(src)/scale
	return clampTo[int64, T](roundToInt64(t), lo, hi)
}

// Dequantize returns qp.Scale * (src - qp.ZeroPoint). Dequantizing the zero
// point returns exactly 0.
func Dequantize[T Quantized](src T, qp QuantizationParams) float32 {
	return dequantizeOne(src, float64(qp.ZeroPoint), qp.Scale)
}

func dequantizeOne[T Quantized](src T, zp, scale float64) float32 {
	return float32(scale * (float64(src) - zp))
}

// RequantizeFixedPoint rescales an int32 accumulator into rp.Target without
// floating point: zero_point + SaturatingRoundingMulWithShift, saturated
// into the code range of T.
func RequantizeFixedPoint[T Quantized](src int32, rp RequantizationParams) T {
	if checked {
		requireClampTypes[int64, T]("RequantizeFixedPoint", rp.Target.Precision, isSigned[T]())
		checkContract(rp.RightShift >= 0, "RequantizeFixedPoint", "negative right shift %d", rp.RightShift)
	}
	lo, hi := Bounds(rp.Target.Precision, isSigned[T]())
	return requantizeFixedOne[T](src, rp.Multiplier, rp.RightShift, int64(rp.Target.ZeroPoint), lo, hi)
}

func requantizeFixedOne[T Quantized](src, multiplier int32, rightShift int, zp, lo, hi int64) T {
	v := addSaturating(zp, SaturatingRoundingMulWithShift(src, multiplier, rightShift))
	return clampTo[int64, T](v, lo, hi)
}

// Requantize rescales an int32 accumulator into rp.Target in floating point:
// zero_point + round(src * RealMultiplier) with ties to even, saturated into
// the code range of T.
func Requantize[T Quantized](src int32, rp RequantizationParams) T {
	if checked {
		requireClampTypes[int64, T]("Requantize", rp.Target.Precision, isSigned[T]())
	}
	lo, hi := Bounds(rp.Target.Precision, isSigned[T]())
	return requantizeFloatOne[T](src, rp.RealMultiplier, float64(rp.Target.ZeroPoint), lo, hi)
}

func requantizeFloatOne[T Quantized](src int32, multiplier, zp float64, lo, hi int64) T {
	r := zp + math.RoundToEven(float64(src)*multiplier)
	return clampTo[int64, T](saturateInt64(r), lo, hi)
}

// roundToInt64 rounds x half to even and saturates it into int64.
func roundToInt64(x float64) int64 {
	return saturateInt64(math.RoundToEven(x))
}

// saturateInt64 converts an integral float to int64, saturating out-of-range
// values. NaN maps to math.MinInt64 so it clamps to the lowest code, which is
// also what a vector Max(NaN, lo) produces.
func saturateInt64(r float64) int64 {
	if !(r >= -0x1p63) {
		return math.MinInt64
	}
	if r >= 0x1p63 {
		return math.MaxInt64
	}
	return int64(r)
}

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
	"math/bits"
)

// MinScale replaces a zero (or vanishingly small) scale. It is the smallest
// normal float32, so kernels that precompute 1/scale in single precision
// still get a finite reciprocal.
const MinScale = 0x1p-126

// ChooseQuantizationParams derives scale and zero point mapping the real
// range [min, max] onto the codes [qmin, qmax].
//
// The range is first extended to contain 0 so that real 0 is representable.
// With preserveSparsity and a range straddling 0, the range is made
// symmetric and the zero point is the midpoint of [qmin, qmax], so 0 maps to
// the same code independent of the data. With forceScalePowerOfTwo the
// scale is rounded up to the next power of two.
//
// min and max must be finite with min <= max, and qmin < qmax must describe
// at most 32 bits of codes.
func ChooseQuantizationParams(min, max float32, qmin, qmax int32, preserveSparsity, forceScalePowerOfTwo bool) QuantizationParams {
	if checked {
		const op = "ChooseQuantizationParams"
		checkContract(qmin < qmax, op, "qmin %d must be less than qmax %d", qmin, qmax)
		checkContract(!math.IsNaN(float64(min)) && !math.IsInf(float64(min), 0), op, "min %v is not finite", min)
		checkContract(!math.IsNaN(float64(max)) && !math.IsInf(float64(max), 0), op, "max %v is not finite", max)
		checkContract(min <= max, op, "min %v greater than max %v", min, max)
	}

	lo, hi := float64(min), float64(max)
	symmetric := preserveSparsity && lo < 0 && hi > 0
	if symmetric {
		m := math.Max(-lo, hi)
		lo, hi = -m, m
	}

	// The real range must contain 0.
	lo = math.Min(lo, 0)
	hi = math.Max(hi, 0)

	codes := int64(qmax) - int64(qmin)
	scale := (hi - lo) / float64(codes)
	if scale == 0 || math.IsInf(float64(1/float32(scale)), 0) {
		scale = MinScale
	}
	if forceScalePowerOfTwo {
		scale = ceilPowerOfTwo(scale)
	}

	var zp float64
	if symmetric {
		zp = math.RoundToEven(float64(int64(qmin)+int64(qmax)) / 2)
	} else {
		zp = math.RoundToEven(float64(qmin) - lo/scale)
	}
	zp = math.Min(math.Max(zp, float64(qmin)), float64(qmax))

	return QuantizationParams{
		Scale:     scale,
		ZeroPoint: int32(zp),
		Precision: bits.Len64(uint64(codes)),
	}
}

// ceilPowerOfTwo returns the smallest power of two >= x for x > 0.
func ceilPowerOfTwo(x float64) float64 {
	frac, exp := math.Frexp(x)
	if frac == 0.5 {
		return x
	}
	return math.Ldexp(1, exp)
}

// ChooseRequantizationMultiplier decomposes realMultiplier into an integer
// multiplier of the given precision and a right shift such that
//
//	realMultiplier ≈ multiplier / 2^rightShift
//
// The multiplier's magnitude is normalized into [2^(precision-2),
// 2^(precision-1)), so a 32-bit precision yields a positive int32. A zero
// realMultiplier yields (0, 0).
//
// realMultiplier must be finite and non-negative, and precision in [2, 32].
// A realMultiplier too large for precision would need a negative shift; that
// is a contract violation, and unchecked builds clamp the shift to 0.
func ChooseRequantizationMultiplier(realMultiplier float64, precision int) (multiplier int32, rightShift int) {
	const op = "ChooseRequantizationMultiplier"
	if checked {
		checkContract(precision >= 2 && precision <= MaxPrecision, op, "precision %d outside [2, %d]", precision, MaxPrecision)
		checkContract(realMultiplier >= 0 && !math.IsInf(realMultiplier, 0), op, "real multiplier %v must be finite and non-negative", realMultiplier)
	}
	if realMultiplier == 0 {
		return 0, 0
	}

	significand, exponent := math.Frexp(realMultiplier)
	one := int64(1) << (precision - 1)
	q := int64(math.Round(significand * float64(one)))
	rightShift = precision - 1 - exponent

	// Rounding can carry the significand up to exactly 1.0; renormalize.
	if q == one {
		q /= 2
		rightShift--
	}

	if rightShift < 0 {
		if checked {
			checkContract(false, op, "real multiplier %v needs a negative shift at precision %d", realMultiplier, precision)
		}
		rightShift = 0
	}
	return int32(q), rightShift
}

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

// maxShift is the largest shift applied by the fixed-point multiply. Every
// non-saturated product of two int32 values lies in
// [-2^62+2^31, 2^62-2^31], so shifting by 63 or more yields 0 after rounding
// and adding the 2^62 nudge cannot overflow.
const maxShift = 63

// SaturatingRoundingMulWithShift returns round(a*b / 2^rightShift) using the
// exact 64-bit product. Rounding adds 2^(rightShift-1) before the arithmetic
// shift, so ties move toward positive infinity; a zero shift returns the
// product unchanged.
//
// The single input pair a == b == math.MinInt32 saturates to math.MaxInt64.
// rightShift must be non-negative.
func SaturatingRoundingMulWithShift(a, b int32, rightShift int) int64 {
	if checked {
		checkContract(rightShift >= 0, "SaturatingRoundingMulWithShift", "negative right shift %d", rightShift)
	}
	if a == math.MinInt32 && b == math.MinInt32 {
		return math.MaxInt64
	}
	s := min(max(rightShift, 0), maxShift)
	return (int64(a)*int64(b) + roundingNudge(s)) >> s
}

// roundingNudge is half of 2^s, or 0 when s is 0.
func roundingNudge(s int) int64 {
	if s == 0 {
		return 0
	}
	return int64(1) << (s - 1)
}

// addSaturating returns a+b clamped to the int64 range.
func addSaturating(a, b int64) int64 {
	s := a + b
	if b > 0 && s < a {
		return math.MaxInt64
	}
	if b < 0 && s > a {
		return math.MinInt64
	}
	return s
}

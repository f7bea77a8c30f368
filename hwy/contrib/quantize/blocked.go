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

// Block kernels are the non-generic archsimd forms of the buffer drivers.
// Each one processes the longest prefix of its input that is a whole number
// of vectors and returns its length; the generic drivers below narrow the
// lanes into T and finish the tail with the element helpers.
//
// A nil kernel means the build has no archsimd form for the op and the
// Vector path uses the Base* kernel instead.
var (
	// quantizeBlock writes clamp(roundToEven(zp + src[i]/scale), lo, hi).
	quantizeBlock func(src []float32, dst []float64, zp, scale, lo, hi float64) int

	// dequantizeBlock writes float32(scale * (src[i] - zp)) for codes
	// already widened to float64.
	dequantizeBlock func(src []float64, dst []float32, zp, scale float64) int

	// requantizeBlock writes clamp(zp + roundToEven(src[i]*multiplier), lo, hi).
	requantizeBlock func(src []int32, dst []float64, multiplier, zp, lo, hi float64) int

	// requantizeFixedBlock writes
	// clamp(mulshift(src[i], multiplier, rightShift), lo-zp, hi-zp) + zp.
	requantizeFixedBlock func(src []int32, dst []int64, multiplier int32, rightShift int, zp, lo, hi int64) int
)

// blockSize is the number of elements staged per block call. It is a
// multiple of every vector length the block kernels use.
const blockSize = 256

func quantizeBlocked[T Quantized](src []float32, dst []T, zeroPoint int32, scale float64, lo, hi int64) {
	var buf [blockSize]float64
	zp := float64(zeroPoint)
	for i := 0; i < len(src); i += blockSize {
		end := min(i+blockSize, len(src))
		done := quantizeBlock(src[i:end], buf[:end-i], zp, scale, float64(lo), float64(hi))
		for j, v := range buf[:done] {
			dst[i+j] = T(v)
		}
		for j := i + done; j < end; j++ {
			dst[j] = quantizeOne[T](src[j], zp, scale, lo, hi)
		}
	}
}

func dequantizeBlocked[T Quantized](src []T, dst []float32, zeroPoint int32, scale float64) {
	var buf [blockSize]float64
	zp := float64(zeroPoint)
	for i := 0; i < len(src); i += blockSize {
		end := min(i+blockSize, len(src))
		codes := buf[:end-i]
		for j := range codes {
			codes[j] = float64(src[i+j])
		}
		done := dequantizeBlock(codes, dst[i:end], zp, scale)
		for j := i + done; j < end; j++ {
			dst[j] = dequantizeOne(src[j], zp, scale)
		}
	}
}

func requantizeBlocked[T Quantized](src []int32, dst []T, multiplier float64, zeroPoint int32, lo, hi int64) {
	var buf [blockSize]float64
	zp := float64(zeroPoint)
	for i := 0; i < len(src); i += blockSize {
		end := min(i+blockSize, len(src))
		done := requantizeBlock(src[i:end], buf[:end-i], multiplier, zp, float64(lo), float64(hi))
		for j, v := range buf[:done] {
			dst[i+j] = T(v)
		}
		for j := i + done; j < end; j++ {
			dst[j] = requantizeFloatOne[T](src[j], multiplier, zp, lo, hi)
		}
	}
}

func requantizeFixedBlocked[T Quantized](src []int32, dst []T, multiplier int32, rightShift int, zeroPoint int32, lo, hi int64) {
	var buf [blockSize]int64
	zp := int64(zeroPoint)
	for i := 0; i < len(src); i += blockSize {
		end := min(i+blockSize, len(src))
		done := requantizeFixedBlock(src[i:end], buf[:end-i], multiplier, rightShift, zp, lo, hi)
		for j, v := range buf[:done] {
			dst[i+j] = T(v)
		}
		for j := i + done; j < end; j++ {
			dst[j] = requantizeFixedOne[T](src[j], multiplier, rightShift, zp, lo, hi)
		}
	}
}

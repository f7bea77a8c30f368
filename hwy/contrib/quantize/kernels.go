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

import "github.com/ajroetker/go-highway-quant/hwy"

// Kernels is one code path for the buffer-level drivers. Scalar and Vector
// implement it and are drop-in substitutes: for every input they produce
// identical output.
//
// Every method reads len(src) elements; dst must hold at least as many.
type Kernels[T Quantized] interface {
	// Name identifies the code path ("scalar" or "vector").
	Name() string

	// FindMinMax returns the smallest and largest element of a non-empty src.
	FindMinMax(src []float32) (lo, hi float32)

	// Quantize applies [Quantize] to every element.
	Quantize(src []float32, dst []T, qp QuantizationParams)

	// Dequantize applies [Dequantize] to every element.
	Dequantize(src []T, dst []float32, qp QuantizationParams)

	// RequantizeFixedPoint applies [RequantizeFixedPoint] to every element.
	RequantizeFixedPoint(src []int32, dst []T, rp RequantizationParams)

	// Requantize applies [Requantize] to every element.
	Requantize(src []int32, dst []T, rp RequantizationParams)
}

// Select returns the Vector kernels when d reports SIMD support and the
// Scalar kernels otherwise. A nil Detector selects Scalar.
func Select[T Quantized](d hwy.Detector) Kernels[T] {
	if d != nil && d.HasSIMD() {
		return Vector[T]{}
	}
	return Scalar[T]{}
}

// Scalar is the portable one-element-at-a-time code path.
type Scalar[T Quantized] struct{}

func (Scalar[T]) Name() string { return "scalar" }

func (Scalar[T]) FindMinMax(src []float32) (lo, hi float32) {
	if checked {
		checkContract(len(src) > 0, "FindMinMax", "empty buffer")
	}
	lo, hi = src[0], src[0]
	for _, v := range src[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func (Scalar[T]) Quantize(src []float32, dst []T, qp QuantizationParams) {
	lo, hi := prepareCodes[T]("Quantize", len(src), len(dst), qp.Precision)
	zp := float64(qp.ZeroPoint)
	for i, v := range src {
		dst[i] = quantizeOne[T](v, zp, qp.Scale, lo, hi)
	}
}

func (Scalar[T]) Dequantize(src []T, dst []float32, qp QuantizationParams) {
	if checked {
		requireBuffers("Dequantize", len(src), len(dst))
	}
	zp := float64(qp.ZeroPoint)
	for i, v := range src {
		dst[i] = dequantizeOne(v, zp, qp.Scale)
	}
}

func (Scalar[T]) RequantizeFixedPoint(src []int32, dst []T, rp RequantizationParams) {
	lo, hi := prepareCodes[T]("RequantizeFixedPoint", len(src), len(dst), rp.Target.Precision)
	if checked {
		checkContract(rp.RightShift >= 0, "RequantizeFixedPoint", "negative right shift %d", rp.RightShift)
	}
	zp := int64(rp.Target.ZeroPoint)
	for i, v := range src {
		dst[i] = requantizeFixedOne[T](v, rp.Multiplier, rp.RightShift, zp, lo, hi)
	}
}

func (Scalar[T]) Requantize(src []int32, dst []T, rp RequantizationParams) {
	lo, hi := prepareCodes[T]("Requantize", len(src), len(dst), rp.Target.Precision)
	zp := float64(rp.Target.ZeroPoint)
	for i, v := range src {
		dst[i] = requantizeFloatOne[T](v, rp.RealMultiplier, zp, lo, hi)
	}
}

// Vector is the lane-blocked code path. It runs the archsimd block kernels
// the build and host provide and the hwy.Vec Base* kernels otherwise.
type Vector[T Quantized] struct{}

func (Vector[T]) Name() string { return "vector" }

func (Vector[T]) FindMinMax(src []float32) (lo, hi float32) {
	if checked {
		checkContract(len(src) > 0, "FindMinMax", "empty buffer")
	}
	lo, hi = findMinMaxVec(src)
	return firstZeros(src, lo, hi)
}

func (Vector[T]) Quantize(src []float32, dst []T, qp QuantizationParams) {
	lo, hi := prepareCodes[T]("Quantize", len(src), len(dst), qp.Precision)
	if quantizeBlock != nil {
		quantizeBlocked(src, dst, qp.ZeroPoint, qp.Scale, lo, hi)
		return
	}
	BaseQuantize(src, dst, qp.ZeroPoint, qp.Scale, lo, hi)
}

func (Vector[T]) Dequantize(src []T, dst []float32, qp QuantizationParams) {
	if checked {
		requireBuffers("Dequantize", len(src), len(dst))
	}
	if dequantizeBlock != nil {
		dequantizeBlocked(src, dst, qp.ZeroPoint, qp.Scale)
		return
	}
	BaseDequantize(src, dst, qp.ZeroPoint, qp.Scale)
}

func (Vector[T]) RequantizeFixedPoint(src []int32, dst []T, rp RequantizationParams) {
	lo, hi := prepareCodes[T]("RequantizeFixedPoint", len(src), len(dst), rp.Target.Precision)
	if checked {
		checkContract(rp.RightShift >= 0, "RequantizeFixedPoint", "negative right shift %d", rp.RightShift)
	}
	if requantizeFixedBlock != nil {
		requantizeFixedBlocked(src, dst, rp.Multiplier, rp.RightShift, rp.Target.ZeroPoint, lo, hi)
		return
	}
	BaseRequantizeFixedPoint(src, dst, rp.Multiplier, rp.RightShift, rp.Target.ZeroPoint, lo, hi)
}

func (Vector[T]) Requantize(src []int32, dst []T, rp RequantizationParams) {
	lo, hi := prepareCodes[T]("Requantize", len(src), len(dst), rp.Target.Precision)
	if requantizeBlock != nil {
		requantizeBlocked(src, dst, rp.RealMultiplier, rp.Target.ZeroPoint, lo, hi)
		return
	}
	BaseRequantize(src, dst, rp.RealMultiplier, rp.Target.ZeroPoint, lo, hi)
}

// firstZeros fixes the sign of a zero extremum. Lane reductions do not order
// -0 and +0, while a sequential scan keeps the first zero it meets, so a
// zero lo or hi is replaced by the first zero in src.
func firstZeros(src []float32, lo, hi float32) (float32, float32) {
	if lo != 0 && hi != 0 {
		return lo, hi
	}
	for _, v := range src {
		if v == 0 {
			if lo == 0 {
				lo = v
			}
			if hi == 0 {
				hi = v
			}
			break
		}
	}
	return lo, hi
}

// prepareCodes checks the buffer and precision preconditions once per call
// and returns the code range of T at precision.
func prepareCodes[T Quantized](op string, srcLen, dstLen, precision int) (lo, hi int64) {
	if checked {
		requireBuffers(op, srcLen, dstLen)
		requireClampTypes[int64, T](op, precision, isSigned[T]())
	}
	return Bounds(precision, isSigned[T]())
}

// FindMinMax scans src with the host's preferred code path.
func FindMinMax(src []float32) (lo, hi float32) {
	return Select[uint8](hwy.Host()).FindMinMax(src)
}

// QuantizeBuffer quantizes src into dst with the host's preferred code path.
func QuantizeBuffer[T Quantized](src []float32, dst []T, qp QuantizationParams) {
	Select[T](hwy.Host()).Quantize(src, dst, qp)
}

// DequantizeBuffer dequantizes src into dst with the host's preferred code path.
func DequantizeBuffer[T Quantized](src []T, dst []float32, qp QuantizationParams) {
	Select[T](hwy.Host()).Dequantize(src, dst, qp)
}

// RequantizeFixedPointBuffer requantizes src into dst with the fixed-point
// multiplier, using the host's preferred code path.
func RequantizeFixedPointBuffer[T Quantized](src []int32, dst []T, rp RequantizationParams) {
	Select[T](hwy.Host()).RequantizeFixedPoint(src, dst, rp)
}

// RequantizeBuffer requantizes src into dst with the real multiplier, using
// the host's preferred code path.
func RequantizeBuffer[T Quantized](src []int32, dst []T, rp RequantizationParams) {
	Select[T](hwy.Host()).Requantize(src, dst, rp)
}

// ChooseQuantizationParamsFor scans src and chooses parameters for it, a
// shorthand for FindMinMax followed by ChooseQuantizationParams.
func ChooseQuantizationParamsFor(src []float32, qmin, qmax int32, preserveSparsity, forceScalePowerOfTwo bool) QuantizationParams {
	lo, hi := FindMinMax(src)
	return ChooseQuantizationParams(lo, hi, qmin, qmax, preserveSparsity, forceScalePowerOfTwo)
}

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

// Package quantize provides affine quantization of float32 buffers into
// 8, 16 and 32-bit integer codes, and fixed-point requantization of int32
// accumulators between quantization stages.
//
// The affine mapping is
//
//	real = scale * (code - zero_point)
//
// # Core Functions
//
//   - ChooseQuantizationParams(min, max, qmin, qmax, preserveSparsity, forceScalePowerOfTwo)
//   - ChooseRequantizationMultiplier(realMultiplier, precision)
//   - SaturatingRoundingMulWithShift(a, b, rightShift)
//   - Clamp[S, D](src, precision, signed)
//   - Quantize, Dequantize, RequantizeFixedPoint, Requantize (one element)
//   - FindMinMax, QuantizeBuffer, DequantizeBuffer, RequantizeFixedPointBuffer,
//     RequantizeBuffer (whole buffers)
//
// # Code Paths
//
// Buffer drivers come in two interchangeable implementations of [Kernels]:
// [Scalar] and [Vector]. [Select] picks one from an hwy.Detector; the
// *Buffer functions use hwy.Host(). Both paths round half to even and
// produce identical output for every input, so they can be substituted
// freely, including for different chunks of the same buffer.
//
// Built with GOEXPERIMENT=simd on amd64, Vector runs archsimd kernels:
// AVX2 for quantize, dequantize and float requantize, and AVX-512 for
// fixed-point requantize. Elsewhere it runs the portable Base* kernels.
//
// # Example Usage
//
//	lo, hi := quantize.FindMinMax(activations)
//	qp := quantize.ChooseQuantizationParams(lo, hi, 0, 255, false, false)
//	codes := make([]uint8, len(activations))
//	quantize.QuantizeBuffer(activations, codes, qp)
//
//	// Rescale int32 accumulators into the output's code space.
//	rp := quantize.NewRequantizationParams(inScale*weightScale/qp.Scale, qp)
//	quantize.RequantizeFixedPointBuffer(acc, codes, rp)
//
// # Preconditions
//
// Invalid precisions, short destination buffers and negative shifts are
// programming errors. They panic with a *ContractError in the default build
// and are compiled out with -tags hwynocheck, where they give undefined
// results. Degenerate numeric inputs (an empty range, a zero multiplier) are
// not errors and have defined substitutes.
package quantize

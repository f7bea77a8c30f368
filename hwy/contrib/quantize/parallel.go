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
	"cmp"
	"slices"
	"sync"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/workerpool"
)

// Elementwise drivers have no cross-element dependencies, so a buffer can be
// cut into contiguous chunks handled by independent workers. Each output
// element is written by exactly one chunk.

// minParallelElements is the buffer size below which chunking costs more
// than it saves.
const minParallelElements = 16 * 1024

// ParallelFindMinMax reduces per-chunk minima and maxima. Chunks are merged
// in index order with the comparisons of a sequential scan, so the result,
// including the sign of a zero, equals k.FindMinMax(src).
func ParallelFindMinMax[T Quantized](pool workerpool.Executor, k Kernels[T], src []float32) (lo, hi float32) {
	if pool == nil || len(src) < minParallelElements {
		return k.FindMinMax(src)
	}
	type chunk struct {
		start  int
		lo, hi float32
	}
	var (
		mu     sync.Mutex
		chunks []chunk
	)
	pool.ParallelFor(len(src), func(start, end int) {
		l, h := k.FindMinMax(src[start:end])
		mu.Lock()
		chunks = append(chunks, chunk{start, l, h})
		mu.Unlock()
	})
	slices.SortFunc(chunks, func(a, b chunk) int { return cmp.Compare(a.start, b.start) })

	lo, hi = chunks[0].lo, chunks[0].hi
	for _, c := range chunks[1:] {
		if c.lo < lo {
			lo = c.lo
		}
		if c.hi > hi {
			hi = c.hi
		}
	}
	return lo, hi
}

// ParallelQuantizeBuffer quantizes src into dst across pool.
func ParallelQuantizeBuffer[T Quantized](pool workerpool.Executor, k Kernels[T], src []float32, dst []T, qp QuantizationParams) {
	if checked {
		requireBuffers("ParallelQuantizeBuffer", len(src), len(dst))
	}
	if pool == nil || len(src) < minParallelElements {
		k.Quantize(src, dst, qp)
		return
	}
	pool.ParallelFor(len(src), func(start, end int) {
		k.Quantize(src[start:end], dst[start:end], qp)
	})
}

// ParallelDequantizeBuffer dequantizes src into dst across pool.
func ParallelDequantizeBuffer[T Quantized](pool workerpool.Executor, k Kernels[T], src []T, dst []float32, qp QuantizationParams) {
	if checked {
		requireBuffers("ParallelDequantizeBuffer", len(src), len(dst))
	}
	if pool == nil || len(src) < minParallelElements {
		k.Dequantize(src, dst, qp)
		return
	}
	pool.ParallelFor(len(src), func(start, end int) {
		k.Dequantize(src[start:end], dst[start:end], qp)
	})
}

// ParallelRequantizeFixedPointBuffer requantizes src into dst across pool.
func ParallelRequantizeFixedPointBuffer[T Quantized](pool workerpool.Executor, k Kernels[T], src []int32, dst []T, rp RequantizationParams) {
	if checked {
		requireBuffers("ParallelRequantizeFixedPointBuffer", len(src), len(dst))
	}
	if pool == nil || len(src) < minParallelElements {
		k.RequantizeFixedPoint(src, dst, rp)
		return
	}
	pool.ParallelFor(len(src), func(start, end int) {
		k.RequantizeFixedPoint(src[start:end], dst[start:end], rp)
	})
}

// ParallelRequantizeBuffer requantizes src into dst with the real
// multiplier across pool.
func ParallelRequantizeBuffer[T Quantized](pool workerpool.Executor, k Kernels[T], src []int32, dst []T, rp RequantizationParams) {
	if checked {
		requireBuffers("ParallelRequantizeBuffer", len(src), len(dst))
	}
	if pool == nil || len(src) < minParallelElements {
		k.Requantize(src, dst, rp)
		return
	}
	pool.ParallelFor(len(src), func(start, end int) {
		k.Requantize(src[start:end], dst[start:end], rp)
	})
}

// RequantizeRows requantizes a row-major rows×cols int32 accumulator matrix
// with one RequantizationParams per row, the usual layout for per-output-
// channel scales of a linear layer. With fixedPoint set the integer
// multiplier is used, otherwise the real one.
func RequantizeRows[T Quantized](pool workerpool.Executor, k Kernels[T], src []int32, dst []T, rows, cols int, params []RequantizationParams, fixedPoint bool) {
	if checked {
		const op = "RequantizeRows"
		checkContract(rows >= 0 && cols >= 0, op, "negative shape %dx%d", rows, cols)
		checkContract(len(src) >= rows*cols, op, "source holds %d elements, shape needs %d", len(src), rows*cols)
		requireBuffers(op, rows*cols, len(dst))
		checkContract(len(params) >= rows, op, "%d params for %d rows", len(params), rows)
	}
	if pool == nil {
		pool = workerpool.Sequential{}
	}
	pool.ParallelFor(rows, func(start, end int) {
		for r := start; r < end; r++ {
			row := src[r*cols : (r+1)*cols]
			out := dst[r*cols : (r+1)*cols]
			if fixedPoint {
				k.RequantizeFixedPoint(row, out, params[r])
			} else {
				k.Requantize(row, out, params[r])
			}
		}
	})
}

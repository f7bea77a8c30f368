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
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/workerpool"
)

func TestParallelBuffers(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	rng := rand.New(rand.NewSource(11))
	const n = 100_003
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(rng.NormFloat64() * 3)
	}
	src[n-1] = 40
	src[n/2] = -40

	for _, k := range bufferKernels[int8]() {
		t.Run(k.Name(), func(t *testing.T) {
			lo, hi := ParallelFindMinMax(pool, k, src)
			require.Equal(t, float32(-40), lo)
			require.Equal(t, float32(40), hi)

			qp := ChooseQuantizationParams(lo, hi, -128, 127, true, false)
			want := make([]int8, n)
			Scalar[int8]{}.Quantize(src, want, qp)
			got := make([]int8, n)
			ParallelQuantizeBuffer(pool, k, src, got, qp)
			require.Equal(t, want, got)

			wantReal := make([]float32, n)
			Scalar[int8]{}.Dequantize(want, wantReal, qp)
			gotReal := make([]float32, n)
			ParallelDequantizeBuffer(pool, k, got, gotReal, qp)
			require.Equal(t, wantReal, gotReal)
		})
	}
}

func TestParallelFindMinMaxSignedZero(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	negZero := float32(math.Copysign(0, -1))
	src := make([]float32, 64*1024)
	for i := range src {
		src[i] = float32(i%5) + 1
	}

	// The first zero in index order decides the sign, whichever chunk
	// finishes first.
	for _, zeros := range [][2]float32{{negZero, 0}, {0, negZero}} {
		src[10_000], src[50_000] = zeros[0], zeros[1]
		for _, k := range bufferKernels[uint8]() {
			lo, hi := ParallelFindMinMax(pool, k, src)
			requireSameFloat(t, zeros[0], lo)
			require.Equal(t, float32(5), hi)
		}
	}
}

func TestParallelRequantize(t *testing.T) {
	pool := workerpool.New(3)
	defer pool.Close()

	rng := rand.New(rand.NewSource(5))
	src := randomAccumulators(rng, 70_001)
	rp := NewRequantizationParams(0.00071, QuantizationParams{Scale: 0.1, ZeroPoint: 17, Precision: 8})

	want := make([]uint8, len(src))
	Scalar[uint8]{}.RequantizeFixedPoint(src, want, rp)
	got := make([]uint8, len(src))
	ParallelRequantizeFixedPointBuffer(pool, Vector[uint8]{}, src, got, rp)
	require.Equal(t, want, got)

	Scalar[uint8]{}.Requantize(src, want, rp)
	ParallelRequantizeBuffer(pool, Vector[uint8]{}, src, got, rp)
	require.Equal(t, want, got)
}

func TestParallelSmallBuffersRunInline(t *testing.T) {
	// A nil pool is accepted below the chunking threshold.
	src := []float32{1, -2, 3}
	lo, hi := ParallelFindMinMax[uint8](nil, Scalar[uint8]{}, src)
	require.Equal(t, float32(-2), lo)
	require.Equal(t, float32(3), hi)

	dst := make([]uint8, len(src))
	ParallelQuantizeBuffer(nil, Scalar[uint8]{}, src, dst, QuantizationParams{Scale: 1, Precision: 8})
	require.Equal(t, []uint8{1, 0, 3}, dst)
}

func TestRequantizeRows(t *testing.T) {
	const rows, cols = 37, 129
	rng := rand.New(rand.NewSource(9))
	src := randomAccumulators(rng, rows*cols)
	params := make([]RequantizationParams, rows)
	for r := range params {
		target := QuantizationParams{Scale: 1, ZeroPoint: int32(rng.Intn(256) - 128), Precision: 8}
		params[r] = NewRequantizationParams(rng.Float64()*1e-3, target)
	}

	pool := workerpool.New(4)
	defer pool.Close()

	for _, fixed := range []bool{true, false} {
		want := make([]int8, rows*cols)
		for r := range rows {
			for c := range cols {
				v := src[r*cols+c]
				if fixed {
					want[r*cols+c] = RequantizeFixedPoint[int8](v, params[r])
				} else {
					want[r*cols+c] = Requantize[int8](v, params[r])
				}
			}
		}
		for _, exec := range []workerpool.Executor{pool, workerpool.Sequential{}, nil} {
			got := make([]int8, rows*cols)
			RequantizeRows(exec, Vector[int8]{}, src, got, rows, cols, params, fixed)
			require.Equal(t, want, got, "fixed=%v executor=%T", fixed, exec)
		}
	}
}

func BenchmarkParallelQuantize(b *testing.B) {
	pool := workerpool.New(runtime.GOMAXPROCS(0))
	defer pool.Close()

	const n = 1 << 20
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(i%512)/256 - 1
	}
	dst := make([]uint8, n)
	qp := ChooseQuantizationParams(-1, 1, 0, 255, false, false)
	k := Select[uint8](nil)

	b.SetBytes(n * 4)
	b.ResetTimer()
	for range b.N {
		ParallelQuantizeBuffer(pool, k, src, dst, qp)
	}
}

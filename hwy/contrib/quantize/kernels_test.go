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
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-highway-quant/hwy"
)

var equivalenceLengths = []int{1, 2, 3, 7, 8, 9, 15, 16, 17, 31, 32, 33, 63, 64, 65, 100, 255, 256, 257, 1000, 1031}

func TestSelect(t *testing.T) {
	require.Equal(t, "vector", Select[uint8](hwy.Static(true)).Name())
	require.Equal(t, "scalar", Select[uint8](hwy.Static(false)).Name())
	require.Equal(t, "scalar", Select[int16](nil).Name())
	if hwy.Host().HasSIMD() {
		require.Equal(t, "vector", Select[int32](hwy.Host()).Name())
	} else {
		require.Equal(t, "scalar", Select[int32](hwy.Host()).Name())
	}
}

func TestKernelsAgree(t *testing.T) {
	t.Run("int8/8", func(t *testing.T) { testKernelsAgree[int8](t, 8) })
	t.Run("uint8/8", func(t *testing.T) { testKernelsAgree[uint8](t, 8) })
	t.Run("uint8/4", func(t *testing.T) { testKernelsAgree[uint8](t, 4) })
	t.Run("int8/5", func(t *testing.T) { testKernelsAgree[int8](t, 5) })
	t.Run("int16/16", func(t *testing.T) { testKernelsAgree[int16](t, 16) })
	t.Run("uint16/16", func(t *testing.T) { testKernelsAgree[uint16](t, 16) })
	t.Run("uint16/12", func(t *testing.T) { testKernelsAgree[uint16](t, 12) })
	t.Run("int32/32", func(t *testing.T) { testKernelsAgree[int32](t, 32) })
	t.Run("uint32/32", func(t *testing.T) { testKernelsAgree[uint32](t, 32) })
	t.Run("int32/8", func(t *testing.T) { testKernelsAgree[int32](t, 8) })
}

// testKernelsAgree runs the Scalar and Vector kernels over the same inputs
// and requires bit-identical output, and checks the scalar buffers against
// the element drivers.
func testKernelsAgree[T Quantized](t *testing.T, precision int) {
	rng := rand.New(rand.NewSource(int64(precision)))
	signed := isSigned[T]()
	lo, hi := Bounds(precision, signed)
	scalar, vector := Scalar[T]{}, Vector[T]{}

	for _, n := range equivalenceLengths {
		qp := QuantizationParams{
			Scale:     math.Ldexp(0.5+rng.Float64(), -rng.Intn(12)),
			ZeroPoint: randomZeroPoint(rng, lo, hi),
			Precision: precision,
		}

		t.Run(fmt.Sprintf("quantize/n=%d", n), func(t *testing.T) {
			src := randomReals(rng, n, qp.Scale*float64(hi-lo))
			want := make([]T, n)
			got := make([]T, n)
			scalar.Quantize(src, want, qp)
			vector.Quantize(src, got, qp)
			require.Equal(t, want, got)
			for i, v := range src {
				require.Equal(t, Quantize[T](v, qp), want[i], "element %d (%v)", i, v)
			}
		})

		t.Run(fmt.Sprintf("dequantize/n=%d", n), func(t *testing.T) {
			src := make([]T, n)
			for i := range src {
				src[i] = T(lo + rng.Int63n(hi-lo+1))
			}
			want := make([]float32, n)
			got := make([]float32, n)
			scalar.Dequantize(src, want, qp)
			vector.Dequantize(src, got, qp)
			require.Equal(t, want, got)
			for i, v := range src {
				require.Equal(t, Dequantize(v, qp), want[i], "element %d (%v)", i, v)
			}
		})

		t.Run(fmt.Sprintf("findminmax/n=%d", n), func(t *testing.T) {
			src := randomReals(rng, n, 1000)
			for i := range src {
				// No NaN: the reduction order decides which NaN wins.
				if math.IsNaN(float64(src[i])) {
					src[i] = 0
				}
			}
			wlo, whi := scalar.FindMinMax(src)
			glo, ghi := vector.FindMinMax(src)
			requireSameFloat(t, wlo, glo)
			requireSameFloat(t, whi, ghi)
		})

		for _, rp := range randomRequantizationParams(rng, lo, hi, precision) {
			name := fmt.Sprintf("m=%d,s=%d,real=%g,zp=%d/n=%d", rp.Multiplier, rp.RightShift, rp.RealMultiplier, rp.Target.ZeroPoint, n)
			src := randomAccumulators(rng, n)

			t.Run("fixed/"+name, func(t *testing.T) {
				want := make([]T, n)
				got := make([]T, n)
				scalar.RequantizeFixedPoint(src, want, rp)
				vector.RequantizeFixedPoint(src, got, rp)
				require.Equal(t, want, got)
				for i, v := range src {
					require.Equal(t, RequantizeFixedPoint[T](v, rp), want[i], "element %d (%d)", i, v)
				}
			})

			t.Run("float/"+name, func(t *testing.T) {
				want := make([]T, n)
				got := make([]T, n)
				scalar.Requantize(src, want, rp)
				vector.Requantize(src, got, rp)
				require.Equal(t, want, got)
				for i, v := range src {
					require.Equal(t, Requantize[T](v, rp), want[i], "element %d (%d)", i, v)
				}
			})
		}
	}
}

// requireSameFloat compares bit patterns, so -0 and +0 differ.
func requireSameFloat(t *testing.T, want, got float32) {
	t.Helper()
	require.Equal(t, math.Float32bits(want), math.Float32bits(got), "want %v, got %v", want, got)
}

func TestFindMinMaxSignedZero(t *testing.T) {
	negZero := float32(math.Copysign(0, -1))
	tests := []struct {
		name   string
		src    []float32
		lo, hi float32
	}{
		{"pos then neg", []float32{0, negZero}, 0, 0},
		{"neg then pos", []float32{negZero, 0}, negZero, negZero},
		{"zero lo", []float32{3, 1, 0, 2, negZero, 5, 4, 6, 7, 8, 9}, 0, 9},
		{"neg zero lo", []float32{3, 1, negZero, 2, 0, 5, 4, 6, 7, 8, 9}, negZero, 9},
		{"zero hi", []float32{-3, -1, -2, -5, -4, -6, -7, negZero, -8, 0, -9}, -9, negZero},
		{"all zeros", []float32{0, negZero, 0, negZero, 0, negZero, 0, negZero, 0}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []Kernels[uint8]{Scalar[uint8]{}, Vector[uint8]{}} {
				lo, hi := k.FindMinMax(tt.src)
				requireSameFloat(t, tt.lo, lo)
				requireSameFloat(t, tt.hi, hi)
			}
		})
	}

	// Zeros far enough in that the vector loop, not the tail, finds them.
	long := make([]float32, 1000)
	for i := range long {
		long[i] = float32(i%7) + 1
	}
	long[600], long[400] = 0, negZero
	for _, k := range []Kernels[uint8]{Scalar[uint8]{}, Vector[uint8]{}} {
		lo, _ := k.FindMinMax(long)
		requireSameFloat(t, negZero, lo)
	}
}

// randomZeroPoint picks a zero point inside both [lo, hi] and the int32 range.
func randomZeroPoint(rng *rand.Rand, lo, hi int64) int32 {
	lo = max(lo, math.MinInt32)
	hi = min(hi, math.MaxInt32)
	return int32(lo + rng.Int63n(hi-lo+1))
}

// randomReals mixes values spread over span with exact ties, signed zeros,
// values far out of range and non-finite values.
func randomReals(rng *rand.Rand, n int, span float64) []float32 {
	specials := []float32{
		0,
		float32(math.Copysign(0, -1)),
		0.5, -0.5, 1.5, -2.5,
		math.MaxFloat32, -math.MaxFloat32,
		float32(math.Inf(1)), float32(math.Inf(-1)),
		float32(math.NaN()),
		1e30, -1e30,
	}
	out := make([]float32, n)
	for i := range out {
		if rng.Intn(5) == 0 {
			out[i] = specials[rng.Intn(len(specials))]
			continue
		}
		out[i] = float32((rng.Float64()*1.4 - 0.7) * span)
	}
	return out
}

func randomAccumulators(rng *rand.Rand, n int) []int32 {
	edges := []int32{math.MinInt32, math.MinInt32 + 1, -1, 0, 1, math.MaxInt32}
	out := make([]int32, n)
	for i := range out {
		switch rng.Intn(4) {
		case 0:
			out[i] = edges[rng.Intn(len(edges))]
		case 1:
			out[i] = int32(rng.Intn(1<<16) - 1<<15)
		default:
			out[i] = int32(rng.Uint32())
		}
	}
	return out
}

func randomRequantizationParams(rng *rand.Rand, lo, hi int64, precision int) []RequantizationParams {
	target := func() QuantizationParams {
		return QuantizationParams{Scale: 1, ZeroPoint: randomZeroPoint(rng, lo, hi), Precision: precision}
	}
	var out []RequantizationParams
	for _, real := range []float64{1e-9, 1e-4, rng.Float64() * 1e-2, 1.0 / 3, 0.5, 0.999999} {
		out = append(out, NewRequantizationParams(real, target()))
	}
	special := []RequantizationParams{
		{RealMultiplier: 1, Multiplier: math.MinInt32, RightShift: 0},
		{RealMultiplier: -1, Multiplier: math.MinInt32, RightShift: 31},
		{RealMultiplier: 1e12, Multiplier: math.MaxInt32, RightShift: 63},
		{RealMultiplier: math.Inf(1), Multiplier: 1 << 30, RightShift: 70},
		{RealMultiplier: math.NaN(), Multiplier: 0, RightShift: 5},
		{RealMultiplier: 0, Multiplier: -12345, RightShift: 1},
	}
	for _, rp := range special {
		rp.Target = target()
		out = append(out, rp)
	}
	return out
}

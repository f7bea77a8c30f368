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

// Package qerror measures how much a quantize/dequantize round trip
// distorts a tensor.
package qerror

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Report summarizes the error between an original tensor and its
// reconstruction.
type Report struct {
	N           int     `json:"n" yaml:"n"`
	MaxAbs      float64 `json:"max_abs" yaml:"max_abs"`
	MeanAbs     float64 `json:"mean_abs" yaml:"mean_abs"`
	RMSE        float64 `json:"rmse" yaml:"rmse"`
	SQNR        float64 `json:"sqnr_db" yaml:"sqnr_db"` // 0 when Exact
	Correlation float64 `json:"correlation" yaml:"correlation"`
	Exact       bool    `json:"exact" yaml:"exact"`
	Saturated   int     `json:"saturated" yaml:"saturated"`
}

// Compare computes the error statistics of recon against orig. Both slices
// must have the same, non-zero length and hold finite values.
func Compare(orig, recon []float32) (Report, error) {
	if len(orig) != len(recon) {
		return Report{}, fmt.Errorf("qerror: length mismatch: %d original, %d reconstructed", len(orig), len(recon))
	}
	if len(orig) == 0 {
		return Report{}, fmt.Errorf("qerror: empty tensor")
	}

	x := widen(orig)
	y := widen(recon)
	n := float64(len(x))

	diff := make([]float64, len(x))
	floats.SubTo(diff, x, y)
	noise := floats.Dot(diff, diff) / n
	signal := floats.Dot(x, x) / n

	for i, d := range diff {
		diff[i] = math.Abs(d)
	}

	r := Report{
		N:       len(x),
		MaxAbs:  floats.Max(diff),
		MeanAbs: stat.Mean(diff, nil),
		RMSE:    math.Sqrt(noise),
		Exact:   noise == 0,
	}
	if !r.Exact && signal > 0 {
		r.SQNR = 10 * math.Log10(signal/noise)
	}

	switch {
	case r.Exact:
		r.Correlation = 1
	case stat.StdDev(x, nil) > 0 && stat.StdDev(y, nil) > 0:
		r.Correlation = stat.Correlation(x, y, nil)
	}
	return r, nil
}

// CountSaturated returns how many codes sit at either end of [lo, hi], the
// elements that were clipped or landed exactly on the range boundary.
func CountSaturated[T constraints.Integer](codes []T, lo, hi int64) int {
	n := 0
	for _, c := range codes {
		if v := int64(c); v <= lo || v >= hi {
			n++
		}
	}
	return n
}

func widen(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

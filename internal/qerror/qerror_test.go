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

package qerror

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	r, err := Compare([]float32{1, 2, 3, 4}, []float32{1, 2, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, 4, r.N)
	assert.Equal(t, 1.0, r.MaxAbs)
	assert.Equal(t, 0.25, r.MeanAbs)
	assert.InDelta(t, 0.5, r.RMSE, 1e-12)
	assert.InDelta(t, 10*math.Log10(30), r.SQNR, 1e-9)
	assert.False(t, r.Exact)
	assert.Greater(t, r.Correlation, 0.9)
}

func TestCompareExact(t *testing.T) {
	r, err := Compare([]float32{0, 0.5, -1}, []float32{0, 0.5, -1})
	require.NoError(t, err)
	assert.True(t, r.Exact)
	assert.Zero(t, r.MaxAbs)
	assert.Zero(t, r.SQNR)
	assert.Equal(t, 1.0, r.Correlation)
}

func TestCompareConstant(t *testing.T) {
	r, err := Compare([]float32{2, 2, 2}, []float32{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.MaxAbs)
	assert.Zero(t, r.Correlation)
	assert.False(t, math.IsNaN(r.Correlation))
}

func TestCompareErrors(t *testing.T) {
	_, err := Compare([]float32{1}, []float32{1, 2})
	require.Error(t, err)
	_, err = Compare(nil, nil)
	require.Error(t, err)
}

func TestCountSaturated(t *testing.T) {
	assert.Equal(t, 3, CountSaturated([]uint8{0, 5, 255, 0, 17}, 0, 255))
	assert.Equal(t, 2, CountSaturated([]int8{-128, 0, 127}, -128, 127))
	assert.Zero(t, CountSaturated([]int16{}, -1, 1))
}

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

// Package hwy provides the dispatch layer and portable lane vectors used by
// the quantization kernels in hwy/contrib.
//
// The dispatch level is detected once at init time from the host CPU and can
// be forced to scalar with the HWY_NO_SIMD environment variable. Kernels that
// need to choose between a scalar and a vectorized strategy consult a
// [Detector], which defaults to [Host] but can be injected by callers.
//
// Vec is a width-agnostic vector: its lane count follows the detected
// register width (16, 32 or 64 bytes). The operations in ops_base.go are the
// pure Go forms; they process whole vectors lane by lane and are what the
// contrib packages are written against.
package hwy

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Floats is the set of floating-point lane types.
type Floats interface {
	constraints.Float
}

// Integers is the set of integer lane types.
type Integers interface {
	constraints.Integer
}

// SignedInts is the set of signed integer lane types.
type SignedInts interface {
	constraints.Signed
}

// Lanes is the set of all lane types a Vec may hold.
type Lanes interface {
	Floats | Integers
}

// Vec is a vector of MaxLanes[T]() lanes.
type Vec[T Lanes] struct {
	data []T
}

// NumLanes returns the number of lanes held by v.
func (v Vec[T]) NumLanes() int {
	return len(v.data)
}

// Data returns the lanes of v. The slice aliases the vector.
func (v Vec[T]) Data() []T {
	return v.data
}

// Mask is a per-lane predicate produced by comparisons.
type Mask[T Lanes] struct {
	bits []bool
}

// GetBit reports whether lane i is set.
func (m Mask[T]) GetBit(i int) bool {
	return m.bits[i]
}

// MaxLanes returns the number of T lanes in a vector of the current width.
func MaxLanes[T Lanes]() int {
	var zero T
	return currentWidth / int(unsafe.Sizeof(zero))
}

// NumLanes is an alias for MaxLanes.
func NumLanes[T Lanes]() int {
	return MaxLanes[T]()
}

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

package hwy

import "math"

// This file provides pure Go implementations of the Highway operations used
// by the quantization kernels. Each operation works lane by lane over whole
// vectors; lengths follow the shorter operand so partial vectors loaded from a
// slice tail stay consistent.

// Load creates a vector by loading data from a slice.
func Load[T Lanes](src []T) Vec[T] {
	n := MaxLanes[T]()
	if len(src) < n {
		n = len(src)
	}
	data := make([]T, n)
	copy(data, src[:n])
	return Vec[T]{data: data}
}

// Store writes a vector's data to a slice.
func Store[T Lanes](v Vec[T], dst []T) {
	n := len(v.data)
	if len(dst) < n {
		n = len(dst)
	}
	copy(dst[:n], v.data[:n])
}

// Set creates a vector with all lanes set to the same value.
func Set[T Lanes](value T) Vec[T] {
	n := MaxLanes[T]()
	data := make([]T, n)
	for i := range data {
		data[i] = value
	}
	return Vec[T]{data: data}
}

// Zero creates a vector with all lanes set to zero.
func Zero[T Lanes]() Vec[T] {
	return Vec[T]{data: make([]T, MaxLanes[T]())}
}

func lanes2[T Lanes](a, b Vec[T]) int {
	return min(len(a.data), len(b.data))
}

// Add performs element-wise addition. Integer lanes wrap.
func Add[T Lanes](a, b Vec[T]) Vec[T] {
	n := lanes2(a, b)
	result := make([]T, n)
	for i := range n {
		result[i] = a.data[i] + b.data[i]
	}
	return Vec[T]{data: result}
}

// Sub performs element-wise subtraction. Integer lanes wrap.
func Sub[T Lanes](a, b Vec[T]) Vec[T] {
	n := lanes2(a, b)
	result := make([]T, n)
	for i := range n {
		result[i] = a.data[i] - b.data[i]
	}
	return Vec[T]{data: result}
}

// Mul performs element-wise multiplication keeping the low bits for integers.
func Mul[T Lanes](a, b Vec[T]) Vec[T] {
	n := lanes2(a, b)
	result := make([]T, n)
	for i := range n {
		result[i] = a.data[i] * b.data[i]
	}
	return Vec[T]{data: result}
}

// Div performs element-wise division.
func Div[T Floats](a, b Vec[T]) Vec[T] {
	n := lanes2(a, b)
	result := make([]T, n)
	for i := range n {
		result[i] = a.data[i] / b.data[i]
	}
	return Vec[T]{data: result}
}

// Min returns element-wise minimum.
func Min[T Lanes](a, b Vec[T]) Vec[T] {
	n := lanes2(a, b)
	result := make([]T, n)
	for i := range n {
		if a.data[i] < b.data[i] {
			result[i] = a.data[i]
		} else {
			result[i] = b.data[i]
		}
	}
	return Vec[T]{data: result}
}

// Max returns element-wise maximum.
func Max[T Lanes](a, b Vec[T]) Vec[T] {
	n := lanes2(a, b)
	result := make([]T, n)
	for i := range n {
		if a.data[i] > b.data[i] {
			result[i] = a.data[i]
		} else {
			result[i] = b.data[i]
		}
	}
	return Vec[T]{data: result}
}

// Clamp limits every lane of v to [lo, hi].
func Clamp[T Lanes](v, lo, hi Vec[T]) Vec[T] {
	return Min(Max(v, lo), hi)
}

// RoundToEven rounds each lane to the nearest integer, ties to even.
// This is the IEEE default rounding used by VROUNDPS/VROUNDPD imm 0 and
// NEON FRINTN.
func RoundToEven[T Floats](v Vec[T]) Vec[T] {
	result := make([]T, len(v.data))
	for i, x := range v.data {
		result[i] = T(math.RoundToEven(float64(x)))
	}
	return Vec[T]{data: result}
}

// ShiftRight shifts every lane right by n bits. Signed lanes shift
// arithmetically.
func ShiftRight[T Integers](v Vec[T], n int) Vec[T] {
	result := make([]T, len(v.data))
	for i, x := range v.data {
		result[i] = x >> uint(n)
	}
	return Vec[T]{data: result}
}

// ConvertTo converts each lane of v to type D with Go conversion semantics.
// The caller guarantees every lane is representable in D.
func ConvertTo[D, S Lanes](v Vec[S]) Vec[D] {
	result := make([]D, len(v.data))
	for i, x := range v.data {
		result[i] = D(x)
	}
	return Vec[D]{data: result}
}

// ReduceMin returns the smallest lane.
func ReduceMin[T Lanes](v Vec[T]) T {
	m := v.data[0]
	for _, x := range v.data[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// ReduceMax returns the largest lane.
func ReduceMax[T Lanes](v Vec[T]) T {
	m := v.data[0]
	for _, x := range v.data[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Equal performs element-wise equality comparison.
func Equal[T Lanes](a, b Vec[T]) Mask[T] {
	n := lanes2(a, b)
	bits := make([]bool, n)
	for i := range n {
		bits[i] = a.data[i] == b.data[i]
	}
	return Mask[T]{bits: bits}
}

// IfThenElse performs conditional selection.
func IfThenElse[T Lanes](mask Mask[T], a, b Vec[T]) Vec[T] {
	n := min(len(mask.bits), len(a.data), len(b.data))
	result := make([]T, n)
	for i := range n {
		if mask.bits[i] {
			result[i] = a.data[i]
		} else {
			result[i] = b.data[i]
		}
	}
	return Vec[T]{data: result}
}

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
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Quantized is the set of integer code types the drivers produce: the 8, 16
// and 32-bit signed and unsigned integers.
type Quantized interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32
}

// MaxPrecision is the widest code supported, in bits.
const MaxPrecision = 32

// Bounds returns the inclusive code range of a precision-bit integer:
// [0, 2^p-1] when unsigned and [-2^(p-1), 2^(p-1)-1] when signed.
func Bounds(precision int, signed bool) (lo, hi int64) {
	if signed {
		return -(int64(1) << (precision - 1)), int64(1)<<(precision-1) - 1
	}
	return 0, int64(1)<<precision - 1
}

// Clamp saturates src into the range of a precision-bit integer of the given
// signedness and converts it to D.
//
// Both S and D must be able to represent the whole range; picking a wide
// enough intermediate type is the caller's job. With checks enabled a
// violation panics with a *ContractError, otherwise the result is undefined.
func Clamp[S, D constraints.Integer](src S, precision int, signed bool) D {
	if checked {
		requireClampTypes[S, D]("Clamp", precision, signed)
	}
	lo, hi := Bounds(precision, signed)
	return clampTo[S, D](src, lo, hi)
}

func clampTo[S, D constraints.Integer](src S, lo, hi int64) D {
	l, h := S(lo), S(hi)
	if src < l {
		return D(l)
	}
	if src > h {
		return D(h)
	}
	return D(src)
}

func isSigned[T constraints.Integer]() bool {
	var zero T
	return ^zero < 0
}

// typeRange returns the representable range of T.
func typeRange[T constraints.Integer]() (lo int64, hi uint64) {
	var zero T
	bits := uint(unsafe.Sizeof(zero)) * 8
	if isSigned[T]() {
		return -(int64(1) << (bits - 1)), uint64(1)<<(bits-1) - 1
	}
	return 0, uint64(1)<<bits - 1
}

func representable[T constraints.Integer](lo, hi int64) bool {
	tlo, thi := typeRange[T]()
	return lo >= tlo && uint64(hi) <= thi
}

func requirePrecision(op string, precision int) {
	checkContract(precision >= 1 && precision <= MaxPrecision, op, "precision %d outside [1, %d]", precision, MaxPrecision)
}

func requireClampTypes[S, D constraints.Integer](op string, precision int, signed bool) {
	requirePrecision(op, precision)
	lo, hi := Bounds(precision, signed)
	checkContract(representable[S](lo, hi), op, "source type cannot represent [%d, %d]", lo, hi)
	checkContract(representable[D](lo, hi), op, "destination type cannot represent [%d, %d]", lo, hi)
}

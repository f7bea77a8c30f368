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
	"testing"
)

func TestBounds(t *testing.T) {
	tests := []struct {
		precision int
		signed    bool
		lo, hi    int64
	}{
		{1, false, 0, 1},
		{1, true, -1, 0},
		{4, false, 0, 15},
		{4, true, -8, 7},
		{8, false, 0, 255},
		{8, true, -128, 127},
		{16, false, 0, 65535},
		{16, true, -32768, 32767},
		{32, false, 0, math.MaxUint32},
		{32, true, math.MinInt32, math.MaxInt32},
	}
	for _, tt := range tests {
		lo, hi := Bounds(tt.precision, tt.signed)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Bounds(%d, %v) = [%d, %d], want [%d, %d]", tt.precision, tt.signed, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestClampUnsigned(t *testing.T) {
	tests := []struct {
		name      string
		src       int64
		precision int
		want      uint8
	}{
		{"in range", 42, 8, 42},
		{"above", 300, 8, 255},
		{"below", -5, 8, 0},
		{"max int64", math.MaxInt64, 8, 255},
		{"min int64", math.MinInt64, 8, 0},
		{"4 bit above", 20, 4, 15},
		{"4 bit edge", 15, 4, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp[int64, uint8](tt.src, tt.precision, false); got != tt.want {
				t.Errorf("Clamp(%d, %d, unsigned) = %d, want %d", tt.src, tt.precision, got, tt.want)
			}
		})
	}
}

func TestClampSigned(t *testing.T) {
	tests := []struct {
		name      string
		src       int64
		precision int
		want      int8
	}{
		{"in range", -42, 8, -42},
		{"above", 200, 8, 127},
		{"below", -300, 8, -128},
		{"4 bit below", -9, 4, -8},
		{"4 bit above", 8, 4, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp[int64, int8](tt.src, tt.precision, true); got != tt.want {
				t.Errorf("Clamp(%d, %d, signed) = %d, want %d", tt.src, tt.precision, got, tt.want)
			}
		})
	}
}

func TestClampWideTypes(t *testing.T) {
	if got := Clamp[int32, uint16](70000, 16, false); got != math.MaxUint16 {
		t.Errorf("Clamp[int32, uint16](70000) = %d, want %d", got, math.MaxUint16)
	}
	if got := Clamp[uint64, uint32](math.MaxUint64, 32, false); got != math.MaxUint32 {
		t.Errorf("Clamp[uint64, uint32](MaxUint64) = %d, want %d", got, uint32(math.MaxUint32))
	}
	if got := Clamp[int64, int32](math.MinInt64, 32, true); got != math.MinInt32 {
		t.Errorf("Clamp[int64, int32](MinInt64) = %d, want %d", got, math.MinInt32)
	}
	// A signed source clamped into an unsigned 16-bit range stored in int32.
	if got := Clamp[int64, int32](-1, 16, false); got != 0 {
		t.Errorf("Clamp[int64, int32](-1, 16, unsigned) = %d, want 0", got)
	}
}

func TestTypeRange(t *testing.T) {
	check := func(name string, lo int64, hi uint64, wantLo int64, wantHi uint64) {
		t.Helper()
		if lo != wantLo || hi != wantHi {
			t.Errorf("typeRange[%s]() = [%d, %d], want [%d, %d]", name, lo, hi, wantLo, wantHi)
		}
	}
	lo, hi := typeRange[int8]()
	check("int8", lo, hi, math.MinInt8, math.MaxInt8)
	lo, hi = typeRange[uint8]()
	check("uint8", lo, hi, 0, math.MaxUint8)
	lo, hi = typeRange[int64]()
	check("int64", lo, hi, math.MinInt64, math.MaxInt64)
	lo, hi = typeRange[uint64]()
	check("uint64", lo, hi, 0, math.MaxUint64)

	if !isSigned[int16]() || isSigned[uint16]() {
		t.Error("isSigned reports the wrong signedness for 16-bit types")
	}
}

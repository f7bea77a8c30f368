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

package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/ajroetker/go-highway-quant/hwy"
	"github.com/ajroetker/go-highway-quant/hwy/contrib/quantize"
)

// codeType is the set of code element types the command reads and writes.
type codeType interface {
	int8 | uint8 | int16 | uint16 | int32
}

var codeTypeNames = []string{"uint8", "int8", "uint16", "int16", "int32"}

// codeWidth returns the bit width and signedness of a code type name.
func codeWidth(name string) (bits int, signed bool, err error) {
	switch name {
	case "uint8":
		return 8, false, nil
	case "int8":
		return 8, true, nil
	case "uint16":
		return 16, false, nil
	case "int16":
		return 16, true, nil
	case "int32":
		return 32, true, nil
	}
	return 0, false, fmt.Errorf("unknown code type %q (want one of %s)", name, strings.Join(codeTypeNames, ", "))
}

// codeRange validates precision against the code type and returns the code
// range as ChooseQuantizationParams expects it.
func codeRange(name string, precision int) (qmin, qmax int32, err error) {
	bits, signed, err := codeWidth(name)
	if err != nil {
		return 0, 0, err
	}
	if precision < 2 || precision > bits {
		return 0, 0, fmt.Errorf("precision %d outside [2, %d] for %s", precision, bits, name)
	}
	if !signed && precision == 32 {
		return 0, 0, fmt.Errorf("unsigned 32-bit codes are not supported")
	}
	lo, hi := quantize.Bounds(precision, signed)
	return int32(lo), int32(hi), nil
}

// detector picks the kernel path: the host's unless scalar is forced.
func detector(scalar bool) hwy.Detector {
	if scalar {
		return hwy.Static(false)
	}
	return hwy.Host()
}

// validateMultiplier rejects real multipliers the fixed-point decomposition
// cannot represent at precision. Above 2^(precision-2) the shift is already
// 0, and from 2^(precision-1) - 1/2 on the rounded significand carries into
// a negative shift.
func validateMultiplier(mult float64, precision int) error {
	if precision < 2 || precision > quantize.MaxPrecision {
		return fmt.Errorf("precision %d outside [2, %d]", precision, quantize.MaxPrecision)
	}
	if math.IsNaN(mult) || math.IsInf(mult, 0) || mult < 0 {
		return fmt.Errorf("real multiplier %v must be finite and non-negative", mult)
	}
	if limit := math.Ldexp(1, precision-1) - 0.5; mult >= limit {
		return fmt.Errorf("real multiplier %v must be below %v at precision %d", mult, limit, precision)
	}
	return nil
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

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

import (
	"os"
	"strconv"
)

// DispatchLevel identifies the instruction set family selected at init time.
type DispatchLevel int

const (
	DispatchScalar DispatchLevel = iota
	DispatchSSE2
	DispatchNEON
	DispatchAVX2
	DispatchAVX512
)

func (l DispatchLevel) String() string {
	switch l {
	case DispatchScalar:
		return "scalar"
	case DispatchSSE2:
		return "sse2"
	case DispatchNEON:
		return "neon"
	case DispatchAVX2:
		return "avx2"
	case DispatchAVX512:
		return "avx512"
	default:
		return "unknown(" + strconv.Itoa(int(l)) + ")"
	}
}

// Set by the per-architecture init() in dispatch_*.go.
var (
	currentLevel DispatchLevel
	currentWidth int
	currentName  string
)

// CurrentLevel returns the dispatch level detected for this process.
func CurrentLevel() DispatchLevel {
	return currentLevel
}

// CurrentWidth returns the vector register width in bytes.
func CurrentWidth() int {
	return currentWidth
}

// CurrentName returns a short name for the dispatch level ("avx2", "neon", ...).
func CurrentName() string {
	return currentName
}

// NoSimdEnv reports whether HWY_NO_SIMD is set to a truthy value.
// Any non-empty value other than "0" or "false" disables SIMD dispatch.
func NoSimdEnv() bool {
	v, ok := os.LookupEnv("HWY_NO_SIMD")
	if !ok || v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

// levelWidth is the vector register width in bytes selected by each level.
// Scalar mode keeps 16-byte blocks so the portable kernels see the same
// lane counts as SSE2 and NEON.
var levelWidth = map[DispatchLevel]int{
	DispatchScalar: 16,
	DispatchSSE2:   16,
	DispatchNEON:   16,
	DispatchAVX2:   32,
	DispatchAVX512: 64,
}

func setLevel(l DispatchLevel) {
	currentLevel = l
	currentWidth = levelWidth[l]
	currentName = l.String()
}

func setScalarMode() {
	setLevel(DispatchScalar)
}

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

//go:build amd64 && goexperiment.simd

package hwy

import "simd/archsimd"

func init() {
	if NoSimdEnv() {
		setScalarMode()
		return
	}
	setLevel(amd64Level())
}

// amd64Level trusts archsimd, which also checks OS support for the wider
// register state. AVX without AVX2 stays at SSE2: the integer kernels
// need 256-bit integer ops.
func amd64Level() DispatchLevel {
	switch {
	case archsimd.X86.AVX512():
		return DispatchAVX512
	case archsimd.X86.AVX2():
		return DispatchAVX2
	default:
		return DispatchSSE2
	}
}

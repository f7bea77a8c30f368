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

//go:build amd64 && !goexperiment.simd

package hwy

import "golang.org/x/sys/cpu"

// Without GOEXPERIMENT=simd there is no archsimd, so features come from
// golang.org/x/sys/cpu. The level still selects the lane width the portable
// Vec kernels are blocked on.

func init() {
	if NoSimdEnv() {
		setScalarMode()
		return
	}
	setLevel(amd64Level())
}

func amd64Level() DispatchLevel {
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW && cpu.X86.HasAVX512VL:
		return DispatchAVX512
	case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
		return DispatchAVX2
	default:
		return DispatchSSE2
	}
}

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

// Detector answers the one capability question kernels need: may the
// vectorized code path be used on this machine?
//
// Kernels consult the detector once per buffer call, never per element.
type Detector interface {
	HasSIMD() bool
	Name() string
}

type hostDetector struct{}

func (hostDetector) HasSIMD() bool { return currentLevel > DispatchScalar }
func (hostDetector) Name() string  { return currentName }

// Host returns the Detector backed by this process's dispatch level.
func Host() Detector {
	return hostDetector{}
}

type staticDetector bool

func (s staticDetector) HasSIMD() bool { return bool(s) }

func (s staticDetector) Name() string {
	if s {
		return "static-simd"
	}
	return "static-scalar"
}

// Static returns a Detector with a fixed answer. Use it to pin a code path
// regardless of the host, e.g. when comparing the scalar and vector kernels.
func Static(simd bool) Detector {
	return staticDetector(simd)
}

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

import "fmt"

// ContractError is the panic value raised when a caller violates a
// precondition of this package: an invalid precision, a destination buffer
// shorter than its source, a negative shift, or non-finite parameters.
//
// These are programming errors. They are only detected when the package is
// built without the hwynocheck tag.
type ContractError struct {
	Op  string
	Msg string
}

func (e *ContractError) Error() string {
	return "quantize: " + e.Op + ": " + e.Msg
}

// checkContract panics with a *ContractError when cond is false. Callers guard it
// with "if checked" so the arguments are not evaluated in unchecked builds.
func checkContract(cond bool, op, format string, args ...any) {
	if !cond {
		panic(&ContractError{Op: op, Msg: fmt.Sprintf(format, args...)})
	}
}

func requireBuffers(op string, srcLen, dstLen int) {
	checkContract(dstLen >= srcLen, op, "destination holds %d elements, source has %d", dstLen, srcLen)
}

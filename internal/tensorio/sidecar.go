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

package tensorio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/quantize"
	"github.com/ajroetker/go-highway-quant/internal/qerror"
)

// Sidecar describes a file of quantized codes.
type Sidecar struct {
	Source     string                      `json:"source" yaml:"source"`
	Type       string                      `json:"type" yaml:"type"`
	Count      int                         `json:"count" yaml:"count"`
	Compressed bool                        `json:"compressed" yaml:"compressed"`
	Kernels    string                      `json:"kernels" yaml:"kernels"`
	Params     quantize.QuantizationParams `json:"params" yaml:"params"`
	Error      *qerror.Report              `json:"error,omitempty" yaml:"error,omitempty"`
}

// SidecarPath returns the sidecar location for a codes file.
func SidecarPath(codesPath string) string {
	return codesPath + ".json"
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// WriteSidecar writes s to path as YAML when the extension is .yaml or
// .yml and as indented JSON otherwise.
func WriteSidecar(path string, s Sidecar) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", path, err)
	}
	return nil
}

// ReadSidecar reads a sidecar written by WriteSidecar.
func ReadSidecar(path string) (Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sidecar{}, fmt.Errorf("read sidecar: %w", err)
	}
	var s Sidecar
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return Sidecar{}, fmt.Errorf("decode sidecar %s: %w", path, err)
	}
	if s.Params.Precision < 1 || s.Params.Precision > quantize.MaxPrecision {
		return Sidecar{}, fmt.Errorf("sidecar %s: precision %d outside [1, %d]", path, s.Params.Precision, quantize.MaxPrecision)
	}
	if !(s.Params.Scale > 0) {
		return Sidecar{}, fmt.Errorf("sidecar %s: scale %v must be positive", path, s.Params.Scale)
	}
	return s, nil
}

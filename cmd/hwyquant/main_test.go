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
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/quantize"
	"github.com/ajroetker/go-highway-quant/internal/tensorio"
)

// run executes the command line with an empty config and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, "", args...)
}

func runWithConfig(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	argv := append([]string{"hwyquant", "--config", config, "--log-level", "error"}, args...)
	err := app.Run(context.Background(), argv)
	return stdout.String(), err
}

func TestParamsJSON(t *testing.T) {
	out, err := run(t, "params", "--min=-1", "--max=1")
	require.NoError(t, err)

	var r paramsReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.InDelta(t, 2.0/255, r.Scale, 1e-12)
	assert.Equal(t, int32(128), r.ZeroPoint)
	assert.Equal(t, 8, r.Precision)
	assert.Equal(t, int32(0), r.QMin)
	assert.Equal(t, int32(255), r.QMax)
	assert.InDelta(t, -1.0039, r.RealMin, 1e-4)
}

func TestParamsYAML(t *testing.T) {
	out, err := run(t, "params", "--min=0", "--max=6", "--preserve-sparsity", "--format", "yaml")
	require.NoError(t, err)

	var r paramsReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	assert.Equal(t, int32(0), r.ZeroPoint)
	assert.InDelta(t, 6.0/255, r.Scale, 1e-12)
}

func TestParamsRejectsBadInput(t *testing.T) {
	_, err := run(t, "params", "--min=1", "--max=0")
	require.Error(t, err)
	_, err = run(t, "params", "--min=0", "--max=1", "--qmin=5", "--qmax=5")
	require.Error(t, err)
	_, err = run(t, "params", "--min=0", "--max=1", "--format", "toml")
	require.Error(t, err)
}

func TestMultiplier(t *testing.T) {
	out, err := run(t, "multiplier", "--real=0.75")
	require.NoError(t, err)
	assert.Equal(t, "multiplier=1610612736 right_shift=31 effective=0.75\n", out)

	out, err = run(t, "multiplier", "--real=0.3", "--precision=16", "--format", "json")
	require.NoError(t, err)
	var r multiplierReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, int32(19661), r.Multiplier)
	assert.Equal(t, 16, r.RightShift)

	out, err = run(t, "multiplier", "--real=1073741824", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, int32(1<<30), r.Multiplier)
	assert.Equal(t, 0, r.RightShift)

	_, err = run(t, "multiplier", "--real=4", "--precision=2")
	require.Error(t, err)
	_, err = run(t, "multiplier", "--real=-1")
	require.Error(t, err)
}

func TestValidateMultiplier(t *testing.T) {
	for _, precision := range []int{2, 8, 16, 31, 32} {
		limit := math.Ldexp(1, precision-1) - 0.5
		below := math.Nextafter(limit, 0)

		require.NoError(t, validateMultiplier(below, precision), "precision %d", precision)
		_, shift := quantize.ChooseRequantizationMultiplier(below, precision)
		assert.Equal(t, 0, shift, "precision %d", precision)

		require.Error(t, validateMultiplier(limit, precision), "precision %d", precision)
	}

	require.NoError(t, validateMultiplier(0, 32))
	require.NoError(t, validateMultiplier(1.25, 2))
	require.Error(t, validateMultiplier(1.5, 2))
	require.Error(t, validateMultiplier(math.NaN(), 32))
	require.Error(t, validateMultiplier(math.Inf(1), 32))
	require.Error(t, validateMultiplier(1, 1))
	require.Error(t, validateMultiplier(1, 33))
}

func writeTensor(t *testing.T, dir, name string, n int) (string, []float32) {
	t.Helper()
	data := make([]float32, n)
	for i := range data {
		data[i] = -2 + 5*float32(i)/float32(n-1)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, tensorio.Write(path, data, false))
	return path, data
}

func TestQuantizeDequantize(t *testing.T) {
	dir := t.TempDir()
	a, dataA := writeTensor(t, dir, "a.f32", 1000)
	b, _ := writeTensor(t, dir, "b.f32", 20000)

	_, err := run(t, "quantize", "--type", "int8", "--report", "--zstd", "--workers=2", a, b)
	require.NoError(t, err)

	sc, err := tensorio.ReadSidecar(tensorio.SidecarPath(a + ".q"))
	require.NoError(t, err)
	assert.Equal(t, "int8", sc.Type)
	assert.Equal(t, 1000, sc.Count)
	assert.True(t, sc.Compressed)
	assert.Equal(t, quantize.ChooseQuantizationParams(-2, 3, -128, 127, false, false), sc.Params)
	require.NotNil(t, sc.Error)
	assert.LessOrEqual(t, sc.Error.MaxAbs, sc.Params.Scale)
	assert.Positive(t, sc.Error.Saturated)

	_, err = os.Stat(tensorio.SidecarPath(b + ".q"))
	require.NoError(t, err)

	out := filepath.Join(dir, "a.back.f32")
	_, err = run(t, "dequantize", a+".q", out)
	require.NoError(t, err)
	back, err := tensorio.Read[float32](out)
	require.NoError(t, err)
	require.Len(t, back, len(dataA))
	for i := range back {
		require.LessOrEqual(t, math.Abs(float64(back[i]-dataA[i])), sc.Params.Scale, "element %d", i)
	}
}

func TestQuantizeScalarMatchesHost(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeTensor(t, dir, "w.f32", 5003)

	_, err := run(t, "quantize", "--type", "uint16", "--precision=12", "--scalar", path)
	require.NoError(t, err)
	scalar, err := tensorio.Read[uint16](path + ".q")
	require.NoError(t, err)

	_, err = run(t, "quantize", "--type", "uint16", "--precision=12", path)
	require.NoError(t, err)
	host, err := tensorio.Read[uint16](path + ".q")
	require.NoError(t, err)

	assert.Equal(t, scalar, host)
	for _, c := range host {
		require.LessOrEqual(t, c, uint16(4095))
	}
}

func TestQuantizeErrors(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeTensor(t, dir, "x.f32", 10)

	_, err := run(t, "quantize")
	require.Error(t, err)
	_, err = run(t, "quantize", "--type", "float8", path)
	require.Error(t, err)
	_, err = run(t, "quantize", "--type", "uint8", "--precision=9", path)
	require.Error(t, err)

	nan := filepath.Join(dir, "nan.f32")
	require.NoError(t, tensorio.Write(nan, []float32{1, float32(math.NaN())}, false))
	_, err = run(t, "quantize", nan)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.f32")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = run(t, "quantize", empty)
	require.Error(t, err)
}

func TestRequantize(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.json")
	require.NoError(t, tensorio.WriteSidecar(target, tensorio.Sidecar{
		Type:   "uint8",
		Params: quantize.QuantizationParams{Scale: 1, ZeroPoint: 10, Precision: 8},
	}))
	acc := filepath.Join(dir, "acc.i32")
	require.NoError(t, tensorio.Write(acc, []int32{0, 2, 3, -3, 5, 1000, -1000}, false))

	tests := []struct {
		name  string
		fixed bool
		want  []uint8
	}{
		{"fixed", true, []uint8{10, 11, 12, 9, 13, 255, 0}},
		{"float", false, []uint8{10, 11, 12, 8, 12, 255, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, tt.name+".q")
			args := []string{"requantize", "--params", target, "--real=0.5"}
			if tt.fixed {
				args = append(args, "--fixed")
			}
			_, err := run(t, append(args, acc, out)...)
			require.NoError(t, err)

			got, err := tensorio.Read[uint8](out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			sc, err := tensorio.ReadSidecar(tensorio.SidecarPath(out))
			require.NoError(t, err)
			assert.Equal(t, int32(10), sc.Params.ZeroPoint)
			assert.Equal(t, len(tt.want), sc.Count)
		})
	}
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", "--json")
	require.NoError(t, err)
	var r map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Contains(t, r, "level")
	assert.Contains(t, r, "width")

	out, err = run(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Dispatch level:")
}

func TestConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("type: int16\nprecision: 12\nzstd: true\nworkers: 2\n"), 0o644))

	cfg, err := LoadConfig(config)
	require.NoError(t, err)
	assert.Equal(t, "int16", cfg.Type)
	require.NotNil(t, cfg.Precision)
	assert.Equal(t, int64(12), *cfg.Precision)
	assert.Nil(t, cfg.PreserveSparsity)

	path, _ := writeTensor(t, dir, "c.f32", 64)
	_, err = runWithConfig(t, config, "quantize", path)
	require.NoError(t, err)
	sc, err := tensorio.ReadSidecar(tensorio.SidecarPath(path + ".q"))
	require.NoError(t, err)
	assert.Equal(t, "int16", sc.Type)
	assert.Equal(t, 12, sc.Params.Precision)
	assert.True(t, sc.Compressed)

	// Flags win over the config file.
	_, err = runWithConfig(t, config, "quantize", "--type", "uint8", "--precision=0", path)
	require.NoError(t, err)
	sc, err = tensorio.ReadSidecar(tensorio.SidecarPath(path + ".q"))
	require.NoError(t, err)
	assert.Equal(t, "uint8", sc.Type)
	assert.Equal(t, 8, sc.Params.Precision)
}

func TestConfigErrors(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("precision: [1, 2\n"), 0o644))
	_, err = LoadConfig(bad)
	require.Error(t, err)
	_, err = runWithConfig(t, bad, "info")
	require.Error(t, err)
}

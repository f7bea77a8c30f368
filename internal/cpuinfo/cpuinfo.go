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

// Package cpuinfo reports the CPU features that decide which quantization
// code path runs on this machine.
package cpuinfo

import (
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/cpuid"
	"golang.org/x/sys/cpu"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ajroetker/go-highway-quant/hwy"
)

// Source names for Feature.Source.
const (
	SourceSys   = "x/sys/cpu"
	SourceCPUID = "cpuid"
)

// Feature is one CPU capability flag as reported by one detector.
type Feature struct {
	Name    string `json:"name" yaml:"name"`
	Present bool   `json:"present" yaml:"present"`
	Source  string `json:"source" yaml:"source"`
	Note    string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Report is a snapshot of the host and the dispatch decision made for it.
type Report struct {
	GOOS      string    `json:"goos" yaml:"goos"`
	GOARCH    string    `json:"goarch" yaml:"goarch"`
	NumCPU    int       `json:"num_cpu" yaml:"num_cpu"`
	Brand     string    `json:"brand,omitempty" yaml:"brand,omitempty"`
	Level     string    `json:"level" yaml:"level"`
	Width     int       `json:"width" yaml:"width"`
	SIMD      bool      `json:"simd" yaml:"simd"`
	NoSimdEnv bool      `json:"no_simd_env" yaml:"no_simd_env"`
	Features  []Feature `json:"features" yaml:"features"`
}

// Collect gathers a Report for the running process.
func Collect() Report {
	r := Report{
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		Brand:     cpuid.CPU.BrandName,
		Level:     hwy.CurrentName(),
		Width:     hwy.CurrentWidth(),
		SIMD:      hwy.Host().HasSIMD(),
		NoSimdEnv: hwy.NoSimdEnv(),
	}

	switch runtime.GOARCH {
	case "arm64":
		r.Features = arm64Features()
	case "amd64":
		r.Features = amd64Features()
	}
	return r
}

func amd64Features() []Feature {
	return []Feature{
		{"AVX", cpu.X86.HasAVX, SourceSys, ""},
		{"AVX2", cpu.X86.HasAVX2, SourceSys, ""},
		{"AVX512F", cpu.X86.HasAVX512F, SourceSys, ""},
		{"AVX512BW", cpu.X86.HasAVX512BW, SourceSys, ""},
		{"AVX512VL", cpu.X86.HasAVX512VL, SourceSys, ""},
		{"FMA", cpu.X86.HasFMA, SourceSys, ""},
		{"SSE2", cpu.X86.HasSSE2, SourceSys, ""},
		{"SSE41", cpu.X86.HasSSE41, SourceSys, ""},
		{"SSE42", cpu.X86.HasSSE42, SourceSys, ""},
		{"AVX2", cpuid.CPU.AVX2(), SourceCPUID, ""},
		{"AVX512F", cpuid.CPU.AVX512F(), SourceCPUID, ""},
		{"AVX512DQ", cpuid.CPU.AVX512DQ(), SourceCPUID, ""},
		{"FMA", cpuid.CPU.FMA3(), SourceCPUID, "FMA3"},
	}
}

func arm64Features() []Feature {
	return []Feature{
		{"ASIMD", cpu.ARM64.HasASIMD, SourceSys, "NEON baseline"},
		{"FP", cpu.ARM64.HasFP, SourceSys, "floating point"},
		{"FPHP", cpu.ARM64.HasFPHP, SourceSys, "FP16 scalar"},
		{"ASIMDHP", cpu.ARM64.HasASIMDHP, SourceSys, "FP16 NEON"},
		{"ASIMDDP", cpu.ARM64.HasASIMDDP, SourceSys, "int8 dot product"},
		{"SVE", cpu.ARM64.HasSVE, SourceSys, ""},
		{"SVE2", cpu.ARM64.HasSVE2, SourceSys, ""},
	}
}

// Disagreements returns the names of features reported by both detectors
// with different answers.
func (r Report) Disagreements() []string {
	bySys := make(map[string]bool)
	for _, f := range r.Features {
		if f.Source == SourceSys {
			bySys[f.Name] = f.Present
		}
	}
	var out []string
	for _, f := range r.Features {
		if f.Source != SourceCPUID {
			continue
		}
		if present, ok := bySys[f.Name]; ok && present != f.Present {
			out = append(out, f.Name)
		}
	}
	return out
}

// WriteText prints r in the human-readable layout of the info command.
func (r Report) WriteText(w io.Writer) error {
	upper := cases.Upper(language.English)
	title := cases.Title(language.English)

	p := &printer{w: w}
	p.printf("GOOS: %s\n", r.GOOS)
	p.printf("GOARCH: %s\n", r.GOARCH)
	p.printf("NumCPU: %d\n", r.NumCPU)
	if r.Brand != "" {
		p.printf("Brand: %s\n", r.Brand)
	}
	p.printf("\n")
	p.printf("Dispatch level: %s\n", upper.String(r.Level))
	p.printf("Dispatch width: %d bytes\n", r.Width)
	p.printf("Vector kernels: %v\n", r.SIMD)
	if r.NoSimdEnv {
		p.printf("HWY_NO_SIMD is set; vector kernels disabled\n")
	}

	source := ""
	for _, f := range r.Features {
		if f.Source != source {
			source = f.Source
			p.printf("\n=== %s ===\n", title.String(source))
		}
		if f.Note != "" {
			p.printf("  %-10s %v (%s)\n", f.Name+":", f.Present, f.Note)
		} else {
			p.printf("  %-10s %v\n", f.Name+":", f.Present)
		}
	}
	if d := r.Disagreements(); len(d) > 0 {
		p.printf("\nDetectors disagree on: %v\n", d)
	}
	return p.err
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

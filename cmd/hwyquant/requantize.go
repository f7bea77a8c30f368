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
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/quantize"
	"github.com/ajroetker/go-highway-quant/hwy/contrib/workerpool"
	"github.com/ajroetker/go-highway-quant/internal/logger"
	"github.com/ajroetker/go-highway-quant/internal/tensorio"
)

func requantizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "requantize",
		Usage:     "Rescale int32 accumulators into the codes described by a sidecar",
		ArgsUsage: "<in.i32> <out.q>",
		Flags: append(kernelFlags(),
			&cli.StringFlag{Name: "params", Usage: "sidecar with the target quantization parameters", Required: true},
			&cli.FloatFlag{Name: "real", Usage: "real multiplier from accumulator units to target units", Required: true},
			&cli.BoolFlag{Name: "fixed", Usage: "use the fixed-point multiplier instead of floating point"},
			&cli.BoolFlag{Name: "zstd", Usage: "zstd compress the output"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("requantize: want <in.i32> <out.q>")
			}
			target, err := tensorio.ReadSidecar(cmd.String("params"))
			if err != nil {
				return fmt.Errorf("requantize: %w", err)
			}
			if _, _, err := codeRange(target.Type, target.Params.Precision); err != nil {
				return fmt.Errorf("requantize: %w", err)
			}
			mult := cmd.Float("real")
			if err := validateMultiplier(mult, quantize.MaxPrecision); err != nil {
				return fmt.Errorf("requantize: %w", err)
			}

			cfg := configFrom(ctx)
			workers, scalar := kernelOptions(cmd, cfg)
			compress := cmd.Bool("zstd")
			if cfg.Zstd != nil && !cmd.IsSet("zstd") {
				compress = *cfg.Zstd
			}
			pool := workerpool.New(workers)
			defer pool.Close()

			job := requantizeJob{
				in:       cmd.Args().Get(0),
				out:      cmd.Args().Get(1),
				target:   target,
				params:   quantize.NewRequantizationParams(mult, target.Params),
				fixed:    cmd.Bool("fixed"),
				scalar:   scalar,
				compress: compress,
			}
			log := logger.FromContext(ctx).With("cmd", "requantize")
			switch target.Type {
			case "uint8":
				return runRequantize[uint8](log, pool, job)
			case "int8":
				return runRequantize[int8](log, pool, job)
			case "uint16":
				return runRequantize[uint16](log, pool, job)
			case "int16":
				return runRequantize[int16](log, pool, job)
			default:
				return runRequantize[int32](log, pool, job)
			}
		},
	}
}

type requantizeJob struct {
	in, out  string
	target   tensorio.Sidecar
	params   quantize.RequantizationParams
	fixed    bool
	scalar   bool
	compress bool
}

func runRequantize[T codeType](log logger.Logger, pool workerpool.Executor, job requantizeJob) error {
	acc, err := tensorio.Read[int32](job.in)
	if err != nil {
		return err
	}

	k := quantize.Select[T](detector(job.scalar))
	codes := make([]T, len(acc))
	if job.fixed {
		quantize.ParallelRequantizeFixedPointBuffer(pool, k, acc, codes, job.params)
	} else {
		quantize.ParallelRequantizeBuffer(pool, k, acc, codes, job.params)
	}
	if err := tensorio.Write(job.out, codes, job.compress); err != nil {
		return err
	}

	sc := tensorio.Sidecar{
		Source:     filepath.Base(job.in),
		Type:       job.target.Type,
		Count:      len(codes),
		Compressed: job.compress,
		Kernels:    k.Name(),
		Params:     job.params.Target,
	}
	if err := tensorio.WriteSidecar(tensorio.SidecarPath(job.out), sc); err != nil {
		return err
	}
	log.Info("requantized",
		"file", job.in,
		"out", job.out,
		"count", len(codes),
		"fixed_point", job.fixed,
		"multiplier", job.params.Multiplier,
		"right_shift", job.params.RightShift,
		"kernels", k.Name(),
	)
	return nil
}

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

	"github.com/urfave/cli/v3"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/quantize"
	"github.com/ajroetker/go-highway-quant/hwy/contrib/workerpool"
	"github.com/ajroetker/go-highway-quant/internal/logger"
	"github.com/ajroetker/go-highway-quant/internal/tensorio"
)

func dequantizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "dequantize",
		Usage:     "Convert a file of codes back to float32",
		ArgsUsage: "<in.q> <out.f32>",
		Flags: append(kernelFlags(),
			&cli.StringFlag{Name: "params", Usage: "sidecar with the quantization parameters (default <in.q>.json)"},
			&cli.BoolFlag{Name: "zstd", Usage: "zstd compress the output"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("dequantize: want <in.q> <out.f32>")
			}
			in, out := cmd.Args().Get(0), cmd.Args().Get(1)
			paramsPath := cmd.String("params")
			if paramsPath == "" {
				paramsPath = tensorio.SidecarPath(in)
			}
			sc, err := tensorio.ReadSidecar(paramsPath)
			if err != nil {
				return fmt.Errorf("dequantize: %w", err)
			}
			if _, _, err := codeRange(sc.Type, sc.Params.Precision); err != nil {
				return fmt.Errorf("dequantize: %s: %w", paramsPath, err)
			}

			cfg := configFrom(ctx)
			workers, scalar := kernelOptions(cmd, cfg)
			compress := cmd.Bool("zstd")
			if cfg.Zstd != nil && !cmd.IsSet("zstd") {
				compress = *cfg.Zstd
			}
			pool := workerpool.New(workers)
			defer pool.Close()

			job := dequantizeJob{in: in, out: out, sidecar: sc, scalar: scalar, compress: compress}
			log := logger.FromContext(ctx).With("cmd", "dequantize")
			switch sc.Type {
			case "uint8":
				return runDequantize[uint8](log, pool, job)
			case "int8":
				return runDequantize[int8](log, pool, job)
			case "uint16":
				return runDequantize[uint16](log, pool, job)
			case "int16":
				return runDequantize[int16](log, pool, job)
			default:
				return runDequantize[int32](log, pool, job)
			}
		},
	}
}

type dequantizeJob struct {
	in, out  string
	sidecar  tensorio.Sidecar
	scalar   bool
	compress bool
}

func runDequantize[T codeType](log logger.Logger, pool workerpool.Executor, job dequantizeJob) error {
	codes, err := tensorio.Read[T](job.in)
	if err != nil {
		return err
	}
	if job.sidecar.Count != 0 && job.sidecar.Count != len(codes) {
		return fmt.Errorf("%s: holds %d codes, sidecar says %d", job.in, len(codes), job.sidecar.Count)
	}

	k := quantize.Select[T](detector(job.scalar))
	dst := make([]float32, len(codes))
	quantize.ParallelDequantizeBuffer(pool, k, codes, dst, job.sidecar.Params)
	if err := tensorio.Write(job.out, dst, job.compress); err != nil {
		return err
	}
	log.Info("dequantized", "file", job.in, "out", job.out, "count", len(dst), "kernels", k.Name())
	return nil
}

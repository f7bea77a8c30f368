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
	"runtime"
	"slices"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/quantize"
	"github.com/ajroetker/go-highway-quant/hwy/contrib/workerpool"
	"github.com/ajroetker/go-highway-quant/internal/logger"
	"github.com/ajroetker/go-highway-quant/internal/qerror"
	"github.com/ajroetker/go-highway-quant/internal/tensorio"
)

type quantizeOptions struct {
	Type             string
	Precision        int
	QMin, QMax       int32
	PreserveSparsity bool
	ForcePowerOfTwo  bool
	Zstd             bool
	Report           bool
	Scalar           bool
	Workers          int
}

func quantizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "quantize",
		Usage:     "Quantize float32 tensor files into <file>.q with a <file>.q.json sidecar",
		ArgsUsage: "<in.f32>...",
		Flags: append(kernelFlags(),
			&cli.StringFlag{Name: "type", Usage: "code type: uint8, int8, uint16, int16 or int32", Value: "uint8"},
			&cli.IntFlag{Name: "precision", Usage: "code width in bits (0 for the full type width)"},
			&cli.BoolFlag{Name: "preserve-sparsity", Usage: "map 0 to the middle code for ranges straddling 0"},
			&cli.BoolFlag{Name: "force-pow2", Usage: "round the scale up to a power of two"},
			&cli.BoolFlag{Name: "zstd", Usage: "zstd compress the codes"},
			&cli.BoolFlag{Name: "report", Usage: "record round-trip error statistics in the sidecar"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return errors.New("quantize: no input files")
			}
			opts, err := quantizeOptionsFrom(cmd, configFrom(ctx))
			if err != nil {
				return fmt.Errorf("quantize: %w", err)
			}
			log := logger.FromContext(ctx).With("cmd", "quantize")

			pool := workerpool.New(opts.Workers)
			defer pool.Close()

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(opts.Workers)
			for _, path := range files {
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					return quantizeFile(log, pool, path, opts)
				})
			}
			return g.Wait()
		},
	}
}

// kernelFlags are shared by the commands that run buffer kernels.
func kernelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "workers", Usage: "parallel workers (0 for GOMAXPROCS)"},
		&cli.BoolFlag{Name: "scalar", Usage: "force the scalar kernels"},
	}
}

func kernelOptions(cmd *cli.Command, cfg Config) (workers int, scalar bool) {
	workers = int(cmd.Int("workers"))
	if cfg.Workers != nil && !cmd.IsSet("workers") {
		workers = int(*cfg.Workers)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scalar = cmd.Bool("scalar")
	if cfg.Scalar != nil && !cmd.IsSet("scalar") {
		scalar = *cfg.Scalar
	}
	return workers, scalar
}

// quantizeOptionsFrom applies config file defaults to options whose flag
// was not set explicitly.
func quantizeOptionsFrom(cmd *cli.Command, cfg Config) (quantizeOptions, error) {
	opts := quantizeOptions{
		Type:             cmd.String("type"),
		Precision:        int(cmd.Int("precision")),
		PreserveSparsity: cmd.Bool("preserve-sparsity"),
		ForcePowerOfTwo:  cmd.Bool("force-pow2"),
		Zstd:             cmd.Bool("zstd"),
		Report:           cmd.Bool("report"),
	}
	if cfg.Type != "" && !cmd.IsSet("type") {
		opts.Type = cfg.Type
	}
	if cfg.Precision != nil && !cmd.IsSet("precision") {
		opts.Precision = int(*cfg.Precision)
	}
	if cfg.PreserveSparsity != nil && !cmd.IsSet("preserve-sparsity") {
		opts.PreserveSparsity = *cfg.PreserveSparsity
	}
	if cfg.ForcePowerOfTwo != nil && !cmd.IsSet("force-pow2") {
		opts.ForcePowerOfTwo = *cfg.ForcePowerOfTwo
	}
	if cfg.Zstd != nil && !cmd.IsSet("zstd") {
		opts.Zstd = *cfg.Zstd
	}
	opts.Workers, opts.Scalar = kernelOptions(cmd, cfg)

	bits, _, err := codeWidth(opts.Type)
	if err != nil {
		return opts, err
	}
	if opts.Precision == 0 {
		opts.Precision = bits
	}
	opts.QMin, opts.QMax, err = codeRange(opts.Type, opts.Precision)
	return opts, err
}

func quantizeFile(log logger.Logger, pool workerpool.Executor, path string, opts quantizeOptions) error {
	switch opts.Type {
	case "uint8":
		return runQuantize[uint8](log, pool, path, opts)
	case "int8":
		return runQuantize[int8](log, pool, path, opts)
	case "uint16":
		return runQuantize[uint16](log, pool, path, opts)
	case "int16":
		return runQuantize[int16](log, pool, path, opts)
	case "int32":
		return runQuantize[int32](log, pool, path, opts)
	}
	_, _, err := codeWidth(opts.Type)
	return err
}

func runQuantize[T codeType](log logger.Logger, pool workerpool.Executor, path string, opts quantizeOptions) error {
	src, err := tensorio.Read[float32](path)
	if err != nil {
		return err
	}
	if len(src) == 0 {
		return fmt.Errorf("%s: empty tensor", path)
	}
	if i := slices.IndexFunc(src, func(v float32) bool { return !finite(v) }); i >= 0 {
		return fmt.Errorf("%s: element %d is %v", path, i, src[i])
	}

	k := quantize.Select[T](detector(opts.Scalar))
	lo, hi := quantize.ParallelFindMinMax(pool, k, src)
	qp := quantize.ChooseQuantizationParams(lo, hi, opts.QMin, opts.QMax, opts.PreserveSparsity, opts.ForcePowerOfTwo)

	codes := make([]T, len(src))
	quantize.ParallelQuantizeBuffer(pool, k, src, codes, qp)

	out := path + ".q"
	if err := tensorio.Write(out, codes, opts.Zstd); err != nil {
		return err
	}

	sc := tensorio.Sidecar{
		Source:     filepath.Base(path),
		Type:       opts.Type,
		Count:      len(codes),
		Compressed: opts.Zstd,
		Kernels:    k.Name(),
		Params:     qp,
	}
	if opts.Report {
		recon := make([]float32, len(codes))
		quantize.ParallelDequantizeBuffer(pool, k, codes, recon, qp)
		rep, err := qerror.Compare(src, recon)
		if err != nil {
			return err
		}
		rep.Saturated = qerror.CountSaturated(codes, int64(opts.QMin), int64(opts.QMax))
		sc.Error = &rep
	}
	if err := tensorio.WriteSidecar(tensorio.SidecarPath(out), sc); err != nil {
		return err
	}

	log.Info("quantized",
		"file", path,
		"count", len(codes),
		"min", lo,
		"max", hi,
		"scale", qp.Scale,
		"zero_point", qp.ZeroPoint,
		"precision", qp.Precision,
		"kernels", k.Name(),
	)
	if sc.Error != nil {
		log.Debug("round trip", "file", path, "rmse", sc.Error.RMSE, "max_abs", sc.Error.MaxAbs, "sqnr_db", sc.Error.SQNR)
	}
	return nil
}

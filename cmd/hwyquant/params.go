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
	"fmt"
	"math"

	"github.com/urfave/cli/v3"

	"github.com/ajroetker/go-highway-quant/hwy/contrib/quantize"
)

type paramsReport struct {
	quantize.QuantizationParams `yaml:",inline"`
	QMin    int32   `json:"qmin" yaml:"qmin"`
	QMax    int32   `json:"qmax" yaml:"qmax"`
	RealMin float64 `json:"real_min" yaml:"real_min"`
	RealMax float64 `json:"real_max" yaml:"real_max"`
}

func paramsCmd() *cli.Command {
	return &cli.Command{
		Name:  "params",
		Usage: "Choose scale and zero point for a real range",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "min", Usage: "smallest real value", Required: true},
			&cli.FloatFlag{Name: "max", Usage: "largest real value", Required: true},
			&cli.IntFlag{Name: "qmin", Usage: "lowest code", Value: 0},
			&cli.IntFlag{Name: "qmax", Usage: "highest code", Value: 255},
			&cli.BoolFlag{Name: "preserve-sparsity", Usage: "map 0 to the middle code for ranges straddling 0"},
			&cli.BoolFlag{Name: "force-pow2", Usage: "round the scale up to a power of two"},
			&cli.StringFlag{Name: "format", Usage: "json or yaml", Value: "json"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lo, hi := float32(cmd.Float("min")), float32(cmd.Float("max"))
			if !finite(lo) || !finite(hi) || lo > hi {
				return fmt.Errorf("params: need finite --min <= --max, got [%v, %v]", lo, hi)
			}
			qmin, qmax := int64(cmd.Int("qmin")), int64(cmd.Int("qmax"))
			if qmin >= qmax || qmin < math.MinInt32 || qmax > math.MaxInt32 {
				return fmt.Errorf("params: need --qmin < --qmax within int32, got [%d, %d]", qmin, qmax)
			}

			qp := quantize.ChooseQuantizationParams(lo, hi, int32(qmin), int32(qmax),
				cmd.Bool("preserve-sparsity"), cmd.Bool("force-pow2"))
			zp := int64(qp.ZeroPoint)
			return writeStructured(outWriter(cmd), cmd.String("format"), paramsReport{
				QuantizationParams: qp,
				QMin:               int32(qmin),
				QMax:               int32(qmax),
				RealMin:            qp.Scale * float64(qmin-zp),
				RealMax:            qp.Scale * float64(qmax-zp),
			})
		},
	}
}

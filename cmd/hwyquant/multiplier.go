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

type multiplierReport struct {
	Real       float64 `json:"real" yaml:"real"`
	Precision  int     `json:"precision" yaml:"precision"`
	Multiplier int32   `json:"multiplier" yaml:"multiplier"`
	RightShift int     `json:"right_shift" yaml:"right_shift"`
	Effective  float64 `json:"effective" yaml:"effective"`
}

func multiplierCmd() *cli.Command {
	return &cli.Command{
		Name:  "multiplier",
		Usage: "Decompose a real multiplier into a fixed-point multiplier and shift",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "real", Usage: "real multiplier, typically input_scale*weight_scale/output_scale", Required: true},
			&cli.IntFlag{Name: "precision", Usage: "multiplier width in bits", Value: 32},
			&cli.StringFlag{Name: "format", Usage: "text, json or yaml", Value: "text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mult, precision := cmd.Float("real"), int(cmd.Int("precision"))
			if err := validateMultiplier(mult, precision); err != nil {
				return fmt.Errorf("multiplier: %w", err)
			}
			m, s := quantize.ChooseRequantizationMultiplier(mult, precision)
			r := multiplierReport{
				Real:       mult,
				Precision:  precision,
				Multiplier: m,
				RightShift: s,
				Effective:  math.Ldexp(float64(m), -s),
			}
			w := outWriter(cmd)
			if f := cmd.String("format"); f != "text" {
				return writeStructured(w, f, r)
			}
			_, err := fmt.Fprintf(w, "multiplier=%d right_shift=%d effective=%g\n", r.Multiplier, r.RightShift, r.Effective)
			return err
		},
	}
}

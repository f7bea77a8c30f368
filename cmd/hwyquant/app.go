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
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ajroetker/go-highway-quant/internal/logger"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "hwyquant",
		Usage: "Affine quantization of raw float32 tensors",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to config.yaml",
				Value:   configPath(),
				Sources: cli.EnvVars("HWYQUANT_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
				Value: "text",
			},
		},
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			paramsCmd(),
			multiplierCmd(),
			quantizeCmd(),
			dequantizeCmd(),
			requantizeCmd(),
			infoCmd(),
		},
	}
}

// setup loads the config file and installs the logger and config into ctx.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	level := cmd.String("log-level")
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		level = cfg.LogLevel
	}
	format := cmd.String("log-format")
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		format = cfg.LogFormat
	}

	log := logger.ForFormat(format, errWriter(cmd), logger.ParseLevel(level))
	ctx = logger.WithContext(ctx, log)
	return withConfig(ctx, cfg), nil
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

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

	"github.com/urfave/cli/v3"

	"github.com/ajroetker/go-highway-quant/internal/cpuinfo"
)

func infoCmd() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print the dispatch level and CPU features",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r := cpuinfo.Collect()
			if cmd.Bool("json") {
				return writeStructured(outWriter(cmd), "json", r)
			}
			return r.WriteText(outWriter(cmd))
		},
	}
}

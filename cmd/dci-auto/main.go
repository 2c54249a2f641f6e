// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redhat-cip/dci-pipeline/internal/pipelineauto"
	"github.com/redhat-cip/dci-pipeline/pkg/executil"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: dci-pipeline-auto URL [< description]")
		os.Exit(1)
	}
	url := os.Args[1]

	description, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := pipelineauto.LoadConfig(pipelineauto.DefaultConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runner := executil.NewRunner()
	ran := 0
	for name, args := range pipelineauto.ParseDescription(string(description)) {
		argv, ok := pipelineauto.BuildCommand(cfg, name, url, args)
		if !ok {
			continue
		}
		fmt.Fprintf(os.Stderr, "+ %v\n", argv)
		res, err := runner.Run(context.Background(), executil.Command{Name: argv[0], Args: argv[1:]})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Stdout.Write(res.Stdout)
		os.Stderr.Write(res.Stderr)
		ran++
	}
	if ran == 0 {
		os.Exit(1)
	}
}

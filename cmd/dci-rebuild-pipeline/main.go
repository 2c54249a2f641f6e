// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redhat-cip/dci-pipeline/internal/pipelinerebuild"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

func main() {
	var jobID string
	if len(os.Args) >= 2 {
		jobID = os.Args[1]
	}

	log := logging.NewLogger(false)
	cfg := pipelinerebuild.ResolveEnvConfig()
	if cfg.LocalDev {
		fmt.Fprintf(os.Stderr, "using local development environment with dci_login: %s, dci_cs_url: %s\n", cfg.Login, cfg.ServerURL)
	} else {
		fmt.Fprintf(os.Stderr, "using environment %s\n", cfg.ServerURL)
	}

	client := pipelinerebuild.BuildClient(cfg, log)

	ctx := context.Background()
	id, err := pipelinerebuild.ResolveJobID(ctx, client, cfg, jobID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "job id: %s\n", id)

	jobs, err := pipelinerebuild.PipelineFromJob(ctx, client, id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := pipelinerebuild.PinComponentVersions(jobs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	docs, err := pipelinerebuild.Documents(jobs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := pipelinerebuild.SavePipeline(pipelinerebuild.DefaultOutputPath, docs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("pipeline rebuilt successfully, please see the 'rebuilt-pipeline.yml' file")
}

// SPDX-License-Identifier: Apache-2.0

package pipelinecli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/redhat-cip/dci-pipeline/internal/pipelinediff"
	"github.com/redhat-cip/dci-pipeline/internal/pipelinerebuild"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// newDiffCommand builds "dci-pipeline diff [job-id-1] [job-id-2]": reports
// component-version drift between two pipeline runs, defaulting both ids
// to the latest known job when run against the local-development server.
func newDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "diff [JOB-ID-1] [JOB-ID-2]",
		Short:         "Report component-version drift between two pipeline runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job1, job2 string
			if len(args) > 0 {
				job1 = args[0]
			}
			if len(args) > 1 {
				job2 = args[1]
			}

			log := logging.NewLogger(false)
			cfg := pipelinerebuild.ResolveEnvConfig()
			if cfg.LocalDev {
				fmt.Fprintf(os.Stderr, "using local development environment with dci_login: %s, dci_cs_url: %s\n", cfg.Login, cfg.ServerURL)
			} else {
				fmt.Fprintf(os.Stderr, "using environment %s\n", cfg.ServerURL)
			}
			client := pipelinerebuild.BuildClient(cfg, log)

			id1, err := pipelinerebuild.ResolveJobID(cmd.Context(), client, cfg, job1)
			if err != nil {
				return err
			}
			id2 := job2
			if id2 == "" {
				id2 = id1
			}

			rows, err := pipelinediff.Compare(cmd.Context(), client, id1, id2)
			if err != nil {
				return err
			}
			return pipelinediff.Render(cmd.OutOrStdout(), rows)
		},
	}
}

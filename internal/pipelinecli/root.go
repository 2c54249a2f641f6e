// SPDX-License-Identifier: Apache-2.0

// Package pipelinecli implements the dci-pipeline command line: apply
// zero or more "<name>:<key>=<value>" overrides to one or more pipeline
// documents, concatenated in argument order, then run every job-def to
// completion against the remote job-control service.
package pipelinecli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/redhat-cip/dci-pipeline/internal/pipeline"
	"github.com/redhat-cip/dci-pipeline/internal/runtime"
	"github.com/redhat-cip/dci-pipeline/pkg/executil"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// NewRootCommand constructs the dci-pipeline root command. exitCode
// receives the §4.8 process exit code once RunE returns; main() reads it
// after cmd.Execute() returns nil, since Cobra itself only distinguishes
// error from no-error.
func NewRootCommand(exitCode *int) *cobra.Command {
	var (
		logLevel      string
		vaultCommand  string
		vaultIdentity string
	)

	cmd := &cobra.Command{
		Use:           "dci-pipeline [NAME:KEY=VALUE]... [PIPELINE.yml]...",
		Short:         "Run a multi-stage CI pipeline against the remote job-control service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, paths, err := splitArgs(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no pipeline document given")
			}

			log := logging.NewLogger(logLevel == "DEBUG")
			rt := runtime.New(log)
			defer rt.Close()

			runner := executil.NewRunner()
			ex := pipeline.NewExecutor(rt, log, runner)

			results, outcome, err := pipeline.Run(cmd.Context(), ex, pipeline.LoadOptions{
				Paths:         paths,
				Overrides:     overrides,
				VaultCommand:  vaultCommand,
				VaultIdentity: vaultIdentity,
				Runner:        runner,
			})
			if err != nil {
				*exitCode = 1
				return err
			}

			for _, r := range results {
				if r.Err == nil {
					continue
				}
				log.Error("job-def did not succeed",
					logging.NewField("name", r.JobDef.Name),
					logging.NewField("state", r.LastState),
					logging.NewField("error", r.Err.Error()))
			}
			*exitCode = rt.ExitCode(outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&logLevel, "log-level", "l", envOr("DCI_PIPELINE_LOG_LEVEL", "INFO"), "logging level; DEBUG enables debug messages, any other value logs at INFO")
	cmd.Flags().StringVar(&vaultCommand, "vault-command", envOr("DCI_PIPELINE_VAULT_COMMAND", ""), "external vault decrypt command, e.g. ansible-vault")
	cmd.Flags().StringVar(&vaultIdentity, "vault-identity", os.Getenv("DCI_PIPELINE_VAULT_IDENTITY"), "vault identity name passed to ansible-playbook's --vault-id")

	cmd.AddCommand(newDiffCommand())

	return cmd
}

// splitArgs separates NAME:KEY=VALUE overrides from pipeline document
// paths: an argument parses as an override iff it matches the
// "<name>:<key>=<value>" shape; everything else is a document path,
// matching how the original distinguishes the two on its command line.
func splitArgs(args []string) ([]pipeline.Override, []string, error) {
	var overrides []pipeline.Override
	var paths []string
	for _, a := range args {
		if o, err := pipeline.ParseOverride(a); err == nil {
			overrides = append(overrides, o)
			continue
		}
		paths = append(paths, a)
	}
	return overrides, paths, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

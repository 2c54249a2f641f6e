// SPDX-License-Identifier: Apache-2.0

package queuecli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/redhat-cip/dci-pipeline/internal/queuecli/app"
	"github.com/redhat-cip/dci-pipeline/internal/queuecli/commands"
	"github.com/redhat-cip/dci-pipeline/pkg/executil"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// NewRootCommand constructs the dci-queue root Cobra command: a file-based
// resource queue scheduler for running one admitted command per available
// resource in a pool.
func NewRootCommand() *cobra.Command {
	a := &app.App{Runner: executil.NewRunner()}

	cmd := &cobra.Command{
		Use:           "dci-queue",
		Short:         "Schedule commands against pools of exclusively-held resources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var logLevel string
	cmd.PersistentFlags().BoolVar(&a.ConsoleOutput, "console-output", os.Getenv("DCI_QUEUE_CONSOLE_OUTPUT") != "", "output logs to the console")
	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", envOr("DCI_QUEUE_LOG_LEVEL", "INFO"), "logging level; DEBUG enables debug messages, any other value logs at INFO")
	cmd.PersistentFlags().BoolVarP(&a.Podman, "podman", "p", false, "called from inside a container")
	cmd.PersistentFlags().StringVarP(&a.TopDir, "top-dir", "t", app.DefaultTopDir(), "top directory to store data")

	cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		a.Log = logging.NewLogger(logLevel == "DEBUG")
		return os.MkdirAll(a.TopDir, 0o755)
	}

	// Subcommands, registered in lexicographic order by .Use for
	// deterministic help output.
	cmd.AddCommand(commands.NewAddCrontabCommand(a))
	cmd.AddCommand(commands.NewAddPoolCommand(a))
	cmd.AddCommand(commands.NewAddResourceCommand(a))
	cmd.AddCommand(commands.NewCleanCommand(a))
	cmd.AddCommand(commands.NewDCIJobCommand(a))
	cmd.AddCommand(commands.NewInstallCommand(a))
	cmd.AddCommand(commands.NewListCommand(a))
	cmd.AddCommand(commands.NewLogCommand(a))
	cmd.AddCommand(commands.NewRemoveCrontabCommand(a))
	cmd.AddCommand(commands.NewRemovePoolCommand(a))
	cmd.AddCommand(commands.NewRemoveResourceCommand(a))
	cmd.AddCommand(commands.NewRunCommand(a))
	cmd.AddCommand(commands.NewScheduleCommand(a))
	cmd.AddCommand(commands.NewSearchCommand(a))
	cmd.AddCommand(commands.NewSearchDirCommand(a))
	cmd.AddCommand(commands.NewUninstallCommand(a))
	cmd.AddCommand(commands.NewUnscheduleCommand(a))

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

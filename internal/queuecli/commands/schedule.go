// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/redhat-cip/dci-pipeline/internal/queue"
	"github.com/redhat-cip/dci-pipeline/internal/queuecli/app"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// NewScheduleCommand returns the `dci-queue schedule` command.
func NewScheduleCommand(a *app.App) *cobra.Command {
	var (
		block          bool
		consoleOutput  bool
		force          bool
		removeResource bool
		priority       int
		extraPools     []string
	)
	cmd := &cobra.Command{
		Use:   "schedule POOL -- CMD [ARGS...]",
		Short: "Schedule a command on a pool",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, cmdline := args[0], args[1:]
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolving working directory: %w", err)
			}

			sched := a.Scheduler()
			id, deduped, err := sched.Admit(pool, queue.AdmitOptions{
				Cmd:        cmdline,
				WD:         wd,
				Priority:   priority,
				Remove:     removeResource,
				ExtraPools: extraPools,
				Dedup:      !force,
			})
			if err != nil {
				return err
			}
			if deduped {
				return nil
			}

			if !block {
				return nil
			}

			a.Log.Info("in block mode, running the queue", logging.NewField("pool", pool))
			for {
				if err := sched.Dispatch(pool, consoleOutput); err != nil {
					return err
				}
				if !sched.StillQueued(pool, id) {
					return nil
				}
				time.Sleep(10 * time.Second)
			}
		},
	}
	cmd.Flags().BoolVarP(&block, "block", "b", false, "block until the command is finished and exit with the return code")
	cmd.Flags().BoolVarP(&consoleOutput, "command-output", "C", false, "command output to the console")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "force the command to be scheduled even if it's duplicated")
	cmd.Flags().BoolVarP(&removeResource, "remove-resource", "r", false, "remove the resource once the job starts")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "priority level")
	cmd.Flags().StringArrayVarP(&extraPools, "extra-pool", "e", nil, "book an additional resource from POOL for this command")
	return cmd
}

// NewUnscheduleCommand returns the `dci-queue unschedule` command.
func NewUnscheduleCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "unschedule POOL ID",
		Short: "Un-schedule a command from a pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.Scheduler().Cancel(args[0], id)
		},
	}
}

// NewRunCommand returns the `dci-queue run` command.
func NewRunCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "run POOL",
		Short: "Run a command from a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Scheduler().Dispatch(args[0], a.ConsoleOutput)
		},
	}
}

// NewCleanCommand returns the `dci-queue clean` command.
func NewCleanCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "clean POOL",
		Short: "Clean stale commands from a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Scheduler().Clean(args[0])
		},
	}
}

func parseID(raw string) (int, error) {
	var id int
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

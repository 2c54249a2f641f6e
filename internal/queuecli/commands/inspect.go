// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/redhat-cip/dci-pipeline/internal/queuecli/app"
)

// NewSearchCommand returns the `dci-queue search` command.
func NewSearchCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "search POOL -- CMD [ARGS...]",
		Short: "Search the commands scheduled on a pool of resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, found, err := a.Scheduler().Search(args[0], args[1:])
			if err != nil {
				return err
			}
			if found {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// NewSearchDirCommand returns the `dci-queue searchdir` command.
func NewSearchDirCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "searchdir POOL DIR",
		Short: "Search the command scheduled from its working directory on a pool of resources",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, found, err := a.Scheduler().SearchDir(args[0], args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no command scheduled from %s in pool %s", args[1], args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

// NewDCIJobCommand returns the `dci-queue dci-job` command.
func NewDCIJobCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "dci-job POOL ID",
		Short: "Display a list of job IDs and its name, for a given executed command in a pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			jobs, err := a.Scheduler().JobIDs(args[0], id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, j := range jobs {
				fmt.Fprintf(out, "%s:%s\n", j.Name, j.ID)
			}
			return nil
		},
	}
}

// NewLogCommand returns the `dci-queue log` command. With --follow or
// --lines it execs into tail(1); otherwise it execs into less(1), matching
// the original's preference for a pager over buffering the whole file in
// dci-queue itself.
func NewLogCommand(a *app.App) *cobra.Command {
	var follow bool
	var lines string
	cmd := &cobra.Command{
		Use:   "log POOL ID",
		Short: "Display log for a given executed command in a pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, id := args[0], args[1]
			if !a.Store().PoolExists(pool) {
				return fmt.Errorf("pool %s does not exist", pool)
			}

			logPath := a.Store().LogDir(pool) + "/" + id
			if _, err := os.Stat(logPath); os.IsNotExist(err) {
				queuePath := a.Store().QueueDir(pool) + "/" + id
				if _, err := os.Stat(queuePath); os.IsNotExist(err) {
					return fmt.Errorf("no such file %s", logPath)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for command %s to start...\n", id)
				for {
					if _, err := os.Stat(logPath); err == nil {
						break
					}
					time.Sleep(time.Second)
				}
			}

			var pagerArgs []string
			pager := "less"
			if follow || lines != "" {
				pager = "tail"
				if follow {
					pagerArgs = append(pagerArgs, "-f")
				}
				if lines != "" {
					pagerArgs = append(pagerArgs, "-n", lines)
				}
			}
			pagerArgs = append(pagerArgs, logPath)

			bin, err := exec.LookPath(pager)
			if err != nil {
				return fmt.Errorf("locating %s: %w", pager, err)
			}
			argv := append([]string{pager}, pagerArgs...)
			// Replace this process with the pager, matching the original's
			// os.execlp: dci-queue log is meant to hand off the terminal,
			// not spawn a child and wait on it.
			return syscall.Exec(bin, argv, os.Environ())
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "output appended data as the file grows")
	cmd.Flags().StringVarP(&lines, "lines", "n", "", "output the last N lines")
	return cmd
}

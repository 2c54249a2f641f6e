// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redhat-cip/dci-pipeline/internal/queue"
	"github.com/redhat-cip/dci-pipeline/internal/queuecli/app"
)

// Install edits the operator's crontab to run pool once a minute, as the
// final step of `add-pool` unless --no-install was passed.
func Install(ctx context.Context, a *app.App, pool string) error {
	if !a.Store().PoolExists(pool) {
		return fmt.Errorf("pool %s does not exist", pool)
	}
	return queue.Install(ctx, a.Runner, pool, a.Podman)
}

// NewInstallCommand returns the `dci-queue install` command.
func NewInstallCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "install POOL",
		Short: "Install dci-queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Install(cmd.Context(), a, args[0])
		},
	}
}

// NewUninstallCommand returns the `dci-queue uninstall` command.
func NewUninstallCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall POOL",
		Short: "Uninstall dci-queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.Store().PoolExists(args[0]) {
				return fmt.Errorf("pool %s does not exist", args[0])
			}
			return queue.Uninstall(cmd.Context(), a.Runner, args[0])
		},
	}
}

// NewAddCrontabCommand returns the `dci-queue add-crontab` command, the
// editor dci-queue install invokes via `crontab -e`.
func NewAddCrontabCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "add-crontab POOL FILE",
		Short: "Install dci-queue crontab",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, file := args[0], args[1]
			if !a.Store().PoolExists(pool) {
				return fmt.Errorf("pool %s does not exist", pool)
			}
			if a.Podman {
				fmt.Fprintf(cmd.ErrOrStderr(), "Add the following line using crontab -e:\n%s\n%s\n",
					queue.CrontabLine(pool, true), queue.CrontabCleanLine(pool, true))
				return nil
			}
			return queue.AddCrontab(file, pool, false)
		},
	}
}

// NewRemoveCrontabCommand returns the `dci-queue remove-crontab` command.
func NewRemoveCrontabCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-crontab POOL FILE",
		Short: "Remove dci-queue crontab",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, file := args[0], args[1]
			if !a.Store().PoolExists(pool) {
				return fmt.Errorf("pool %s does not exist", pool)
			}
			return queue.RemoveCrontab(file, pool, a.Podman)
		},
	}
}

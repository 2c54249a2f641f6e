// SPDX-License-Identifier: Apache-2.0

// Package commands implements dci-queue's individual Cobra subcommands.
package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redhat-cip/dci-pipeline/internal/queue"
	"github.com/redhat-cip/dci-pipeline/internal/queuecli/app"
)

// NewAddPoolCommand returns the `dci-queue add-pool` command.
func NewAddPoolCommand(a *app.App) *cobra.Command {
	var noInstall bool
	cmd := &cobra.Command{
		Use:   "add-pool POOL",
		Short: "Create a pool of resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := args[0]
			if err := a.Store().AddPool(pool); err != nil {
				return err
			}
			if noInstall {
				return nil
			}
			return Install(cmd.Context(), a, pool)
		},
	}
	cmd.Flags().BoolVarP(&noInstall, "no-install", "n", false, "do not run the install phase")
	return cmd
}

// NewRemovePoolCommand returns the `dci-queue remove-pool` command.
func NewRemovePoolCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-pool POOL",
		Short: "Remove a pool of resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Store().RemovePool(args[0])
		},
	}
}

// NewAddResourceCommand returns the `dci-queue add-resource` command.
func NewAddResourceCommand(a *app.App) *cobra.Command {
	var referenced bool
	cmd := &cobra.Command{
		Use:   "add-resource POOL NAME",
		Short: "Create a new resource in a pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Store().AddResource(args[0], args[1], referenced)
		},
	}
	cmd.Flags().BoolVar(&referenced, "referenced", false, "do not add the resource to the availability pool yet")
	return cmd
}

// NewRemoveResourceCommand returns the `dci-queue remove-resource` command.
func NewRemoveResourceCommand(a *app.App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "remove-resource POOL NAME REASON",
		Short: "Remove a resource from a pool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Store().RemoveResource(args[0], args[1], args[2], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "force the removal of the resource from the pool")
	return cmd
}

// NewListCommand returns the `dci-queue list` command.
func NewListCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [POOL]",
		Short: "List the commands scheduled on a pool of resources",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listPools(cmd, a)
			}
			return listPool(cmd, a, args[0])
		},
	}
}

func listPools(cmd *cobra.Command, a *app.App) error {
	out := cmd.OutOrStdout()
	pools, err := a.Store().Pools()
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		fmt.Fprintln(out, "No pool was found on the host.")
		return nil
	}
	fmt.Fprintln(out, "The following pools were found:")
	for _, p := range pools {
		fmt.Fprintln(out, "  "+p)
	}
	fmt.Fprintln(out, "Run the command below for the list of commands scheduled on your target pool:")
	fmt.Fprintln(out, "  dci-queue list <pool>")
	return nil
}

func listPool(cmd *cobra.Command, a *app.App, pool string) error {
	out := cmd.OutOrStdout()
	store := a.Store()
	if !store.PoolExists(pool) {
		return fmt.Errorf("pool %s does not exist", pool)
	}

	resources, err := store.Resources(pool)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Resources on the %s pool: %s\n", pool, joinOrNone(resources))

	avail, err := store.Available(pool)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Available resources on the %s pool: %s\n", pool, joinOrNone(avail))

	reasons, err := store.Reasons(pool)
	if err != nil {
		return err
	}
	if len(reasons) > 0 {
		fmt.Fprintf(out, "Removed resources on the %s pool:\n", pool)
		for _, r := range reasons {
			fmt.Fprintf(out, " %s: %s [%s]\n", r.Resource, r.Reason, r.Date.Format("2006-01-02 15:04:05"))
		}
	}

	sched := a.Scheduler()
	entries, err := sched.List(pool)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Executing commands on the %s pool:\n", pool)
	for _, e := range entries {
		if e.Dispatched {
			printEntry(out, e)
		}
	}

	var queued []queue.Entry
	for _, e := range entries {
		if !e.Dispatched {
			queued = append(queued, e)
		}
	}
	sort.SliceStable(queued, func(i, j int) bool { return queued[i].Priority > queued[j].Priority })

	fmt.Fprintf(out, "Queued commands on the %s pool:\n", pool)
	for _, e := range queued {
		printEntry(out, e)
	}
	return nil
}

func printEntry(out io.Writer, e queue.Entry) {
	pri := ""
	if e.Priority > 0 {
		pri = fmt.Sprintf("(p%d)", e.Priority)
	}
	res := ""
	if e.Resource != "" {
		res = fmt.Sprintf(" [%s]", e.Resource)
	}
	fmt.Fprintf(out, " %d%s%s: %s (wd: %s)\n", e.ID, pri, res, strings.Join(e.Cmd, " "), e.WD)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return ""
	}
	out := items[0]
	for _, i := range items[1:] {
		out += " " + i
	}
	return out
}

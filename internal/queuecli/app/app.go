// SPDX-License-Identifier: Apache-2.0

// Package app holds the shared state dci-queue's Cobra commands operate
// against, kept separate from package queuecli itself so the root command
// and the leaf commands package can both import it without a cycle.
package app

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/redhat-cip/dci-pipeline/internal/queue"
	"github.com/redhat-cip/dci-pipeline/internal/queuestore"
	"github.com/redhat-cip/dci-pipeline/pkg/executil"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// App is the shared state every dci-queue subcommand operates against.
type App struct {
	TopDir        string
	Podman        bool
	ConsoleOutput bool
	Log           logging.Logger
	Runner        executil.Runner
}

// Store returns a Store rooted at the app's top directory.
func (a *App) Store() *queuestore.Store {
	return queuestore.New(a.TopDir)
}

// Scheduler returns a Scheduler wired to the app's store, runner and
// logger.
func (a *App) Scheduler() *queue.Scheduler {
	return queue.New(a.Store(), a.Runner, a.Log)
}

// DefaultTopDir mirrors the original's "prefer a writable shared
// directory, else fall back to the user's home" selection so an
// unconfigured dci-queue behaves the same on a shared build host or a
// developer's workstation.
func DefaultTopDir() string {
	topDir := os.Getenv("DCI_QUEUE_DIR")
	if topDir == "" {
		topDir = "/var/lib/dci-queue"
	}
	if info, err := os.Stat(topDir); err == nil && info.IsDir() {
		if unix.Access(topDir, unix.W_OK) == nil {
			return topDir
		}
	} else if unix.Access(filepath.Dir(topDir), unix.W_OK) == nil {
		return topDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return topDir
	}
	return filepath.Join(home, ".dci-queue")
}

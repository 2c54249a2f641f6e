// SPDX-License-Identifier: Apache-2.0

// Package runtime holds the pipeline engine's process-wide ambient state:
// the termination-signal flag and exit-code mapping (C8). It is threaded
// explicitly into every component that may block, rather than read from
// package-level globals, so tests can substitute it.
package runtime

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// Runtime carries the signal flag and logger shared across a pipeline
// run's components.
type Runtime struct {
	Log      logging.Logger
	signaled atomic.Int32
	stop     chan os.Signal
}

// New returns a Runtime that begins listening for SIGTERM/SIGINT
// immediately; call Close to stop listening.
func New(log logging.Logger) *Runtime {
	r := &Runtime{Log: log, stop: make(chan os.Signal, 1)}
	signal.Notify(r.stop, syscall.SIGTERM, syscall.SIGINT)
	go r.watch()
	return r
}

func (r *Runtime) watch() {
	sig, ok := <-r.stop
	if !ok {
		return
	}
	num := signalNumber(sig)
	r.signaled.CompareAndSwap(0, int32(num))
	r.Log.Warn("received termination signal", logging.NewField("signal", num))
}

func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 0
}

// Close stops listening for signals and releases the watcher goroutine.
func (r *Runtime) Close() {
	signal.Stop(r.stop)
	close(r.stop)
}

// Cancelled reports whether a termination signal has been received.
func (r *Runtime) Cancelled() bool {
	return r.signaled.Load() != 0
}

// Signal returns the number of the first termination signal received, or
// 0 if none has arrived yet.
func (r *Runtime) Signal() int {
	return int(r.signaled.Load())
}

// CancelFunc is the capability object passed to the playbook runner so it
// can poll for cancellation without depending on this package directly.
func (r *Runtime) CancelFunc() func() bool {
	return r.Cancelled
}

// Outcome of a stage executor run, used to compute the process exit code.
type Outcome struct {
	AnyFailed bool
	AnyError  bool
}

// ExitCode implements the mapping from §4.8: 0 success, 1 generic
// failure, 2 at least one error-terminal state, 128+N on a received
// termination signal.
func (r *Runtime) ExitCode(o Outcome) int {
	if n := r.Signal(); n != 0 {
		return 128 + n
	}
	if o.AnyError {
		return 2
	}
	if o.AnyFailed {
		return 1
	}
	return 0
}

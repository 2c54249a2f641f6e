// SPDX-License-Identifier: Apache-2.0

// Package executil provides utilities for executing external commands:
// ansible-playbook invocations, the vault decryption helper, and
// dci-queue's tracked background jobs all go through it.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Runner is an interface for executing commands.
type Runner interface {
	// Run executes a command and returns the result.
	// Returns an error if the command fails (non-zero exit code) or if execution fails.
	Run(ctx context.Context, cmd Command) (*Result, error)

	// RunStream executes a command and streams output to the provided writer.
	// Returns an error if the command fails (non-zero exit code) or if execution fails.
	RunStream(ctx context.Context, cmd Command, output io.Writer) error

	// Start launches a command without waiting for it to finish, attaching
	// output to the given writer (or inheriting the parent's streams when
	// output is nil). Used by dci-queue, which must spawn several children
	// before blocking on any of them.
	Start(cmd Command, output io.Writer) (*Handle, error)
}

// Handle is a running child process started via Runner.Start.
type Handle struct {
	cmd *exec.Cmd
}

// Pid returns the child's process id.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Signal delivers a signal to the child. Sending signal 0 probes liveness
// without actually signaling: it returns an error once the process is gone.
func (h *Handle) Signal(sig os.Signal) error {
	return h.cmd.Process.Signal(sig)
}

// Wait blocks until the child exits and returns its exit code. A non-zero
// exit code is reported via ExitCode, not as an error; only OS-level wait
// failures are returned as errors.
func (h *Handle) Wait() (int, error) {
	err := h.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("waiting for child: %w", err)
}

// Command represents a command to execute.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   map[string]string
	Stdin io.Reader
}

// Result contains the result of a command execution.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// runner is the default implementation of Runner.
type runner struct{}

// NewRunner creates a new Runner instance.
func NewRunner() Runner {
	return &runner{}
}

// NewCommand creates a new Command with the given name and arguments.
func NewCommand(name string, args ...string) Command {
	return Command{
		Name: name,
		Args: args,
	}
}

// Run executes a command and returns the result.
func (r *runner) Run(ctx context.Context, cmd Command) (*Result, error) { //nolint:gocritic // hugeParam: intentional for immutability
	//nolint:gosec // This package is designed to execute arbitrary commands;
	// validation should be done by callers.
	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)

	// Set working directory if specified
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}

	// Set environment variables
	if len(cmd.Env) > 0 {
		execCmd.Env = os.Environ()
		for k, v := range cmd.Env {
			execCmd.Env = append(execCmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	// Set stdin if provided
	if cmd.Stdin != nil {
		execCmd.Stdin = cmd.Stdin
	}

	// Capture stdout and stderr
	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	// Execute the command
	err := execCmd.Run()

	result := &Result{
		ExitCode: execCmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}

	// Check for context cancellation first
	if ctx.Err() != nil {
		return result, fmt.Errorf("command cancelled: %w", ctx.Err())
	}

	// Check for execution errors (command not found, permission denied, etc.)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Command executed but returned non-zero exit code
			return result, fmt.Errorf("command failed with exit code %d: %w", result.ExitCode, err)
		}
		// Execution error (command not found, etc.)
		return result, fmt.Errorf("executing command: %w", err)
	}

	return result, nil
}

// RunStream executes a command and streams output to the provided writer.
func (r *runner) RunStream(ctx context.Context, cmd Command, output io.Writer) error { //nolint:gocritic // hugeParam: intentional for immutability
	//nolint:gosec // This package is designed to execute arbitrary commands;
	// validation should be done by callers.
	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)

	// Set working directory if specified
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}

	// Set environment variables
	if len(cmd.Env) > 0 {
		execCmd.Env = os.Environ()
		for k, v := range cmd.Env {
			execCmd.Env = append(execCmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	// Set stdin if provided
	if cmd.Stdin != nil {
		execCmd.Stdin = cmd.Stdin
	}

	// Stream both stdout and stderr to the output writer
	execCmd.Stdout = output
	execCmd.Stderr = output

	// Execute the command
	err := execCmd.Run()

	// Check for context cancellation first
	if ctx.Err() != nil {
		return fmt.Errorf("command cancelled: %w", ctx.Err())
	}

	// Check for execution errors
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Command executed but returned non-zero exit code
			return fmt.Errorf("command failed with exit code %d: %w", exitErr.ExitCode(), err)
		}
		// Execution error (command not found, etc.)
		return fmt.Errorf("executing command: %w", err)
	}

	return nil
}

// Start launches cmd in the background and returns immediately once the
// process has been created. Callers are responsible for eventually calling
// Handle.Wait to reap it.
func (r *runner) Start(cmd Command, output io.Writer) (*Handle, error) { //nolint:gocritic // hugeParam: intentional for immutability
	//nolint:gosec // This package is designed to execute arbitrary commands;
	// validation should be done by callers.
	execCmd := exec.Command(cmd.Name, cmd.Args...)

	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}

	if len(cmd.Env) > 0 {
		execCmd.Env = os.Environ()
		for k, v := range cmd.Env {
			execCmd.Env = append(execCmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	if cmd.Stdin != nil {
		execCmd.Stdin = cmd.Stdin
	}

	if output != nil {
		execCmd.Stdout = output
		execCmd.Stderr = output
	} else {
		execCmd.Stdout = os.Stdout
		execCmd.Stderr = os.Stderr
	}

	// Child gets its own process group so a signal to the dci-queue
	// dispatcher does not also land on jobs it has already detached from.
	execCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := execCmd.Start(); err != nil {
		return nil, fmt.Errorf("starting command: %w", err)
	}

	return &Handle{cmd: execCmd}, nil
}

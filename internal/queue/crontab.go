// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redhat-cip/dci-pipeline/pkg/executil"
)

// CrontabLine returns the line that runs pool's dispatch loop once a
// minute. podman selects the containerized binary name, matching how a
// dci-queue deployed inside a container invokes itself.
func CrontabLine(pool string, podman bool) string {
	bin := "dci-queue"
	if podman {
		bin = "dci-queue-podman"
	}
	return fmt.Sprintf("* * * * * %s run %s >/dev/null 2>&1", bin, pool)
}

// CrontabCleanLine returns the line that reclaims stale dispatched records
// for pool once an hour.
func CrontabCleanLine(pool string, podman bool) string {
	bin := "dci-queue"
	if podman {
		bin = "dci-queue-podman"
	}
	return fmt.Sprintf("0 * * * * %s clean %s >/dev/null 2>&1", bin, pool)
}

// AddCrontab appends pool's run and clean lines to the crontab file named
// by path, skipping any line already present.
func AddCrontab(path, pool string, podman bool) error {
	lines := []string{CrontabLine(pool, podman), CrontabCleanLine(pool, podman)}

	existing, err := readLines(path)
	if err != nil {
		return err
	}
	existingSet := map[string]bool{}
	for _, l := range existing {
		existingSet[l] = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening crontab file %s: %w", path, err)
	}
	defer f.Close()

	for _, line := range lines {
		if existingSet[line] {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s\n", line); err != nil {
			return fmt.Errorf("writing crontab file %s: %w", path, err)
		}
	}
	return nil
}

// RemoveCrontab rewrites the crontab file named by path with pool's run
// and clean lines stripped out.
func RemoveCrontab(path, pool string, podman bool) error {
	remove := map[string]bool{
		CrontabLine(pool, podman):      true,
		CrontabCleanLine(pool, podman): true,
	}

	existing, err := readLines(path)
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(existing))
	for _, l := range existing {
		if !remove[l] {
			kept = append(kept, l)
		}
	}

	content := strings.Join(kept, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing crontab file %s: %w", path, err)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading crontab file %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Install edits the invoking user's crontab interactively via `crontab -e`,
// delegating the actual edit to "dci-queue add-crontab <pool>" through the
// EDITOR mechanism crontab already supports. Under podman, where there is
// no user crontab to edit, the two lines are printed for the operator to
// add to the host's crontab instead.
func Install(ctx context.Context, runner executil.Runner, pool string, podman bool) error {
	if podman {
		fmt.Printf("Add the following line using crontab -e:\n%s\n%s\n",
			CrontabLine(pool, true), CrontabCleanLine(pool, true))
		return nil
	}
	editor := fmt.Sprintf("dci-queue add-crontab %s", pool)
	return runCrontabEdit(ctx, runner, editor)
}

// Uninstall mirrors Install, delegating to "dci-queue remove-crontab".
func Uninstall(ctx context.Context, runner executil.Runner, pool string) error {
	editor := fmt.Sprintf("dci-queue remove-crontab %s", pool)
	return runCrontabEdit(ctx, runner, editor)
}

func runCrontabEdit(ctx context.Context, runner executil.Runner, editor string) error {
	cmd := executil.Command{
		Name: "crontab",
		Args: []string{"-e"},
		Env:  map[string]string{"EDITOR": editor},
	}
	_, err := runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("editing crontab: %w", err)
	}
	return nil
}

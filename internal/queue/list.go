// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Entry is one line of "list" output: a queued or dispatched command
// together with the bookkeeping a human inspecting the queue wants to see.
type Entry struct {
	ID         int
	Dispatched bool
	Priority   int
	Cmd        []string
	WD         string
	Resource   string
	PID        int
}

// List returns every entry currently in pool's queue directory (both
// plain and dispatched), ordered by id.
func (s *Scheduler) List(pool string) ([]Entry, error) {
	entries, err := os.ReadDir(s.Store.QueueDir(pool))
	if err != nil {
		return nil, fmt.Errorf("listing queue directory: %w", err)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if name == ".seq" || name == ".seq.lck" || strings.HasSuffix(name, ".tmp") {
			continue
		}
		dispatched := strings.HasSuffix(name, dispatchedSuffix)
		idStr := strings.TrimSuffix(name, dispatchedSuffix)
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		rec, err := loadRecord(filepath.Join(s.Store.QueueDir(pool), name))
		if err != nil {
			continue
		}
		cmd := rec.Cmd
		if dispatched && len(rec.RealCmd) > 0 {
			cmd = rec.RealCmd
		}
		out = append(out, Entry{
			ID:         id,
			Dispatched: dispatched,
			Priority:   rec.Priority,
			Cmd:        cmd,
			WD:         rec.WD,
			Resource:   rec.Resource,
			PID:        rec.PID,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Log returns the accumulated output of a dispatched (or previously
// dispatched) command's log file.
func (s *Scheduler) Log(pool string, id int) ([]byte, error) {
	path := filepath.Join(s.Store.LogDir(pool), strconv.Itoa(id))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log for %s/%d: %w", pool, id, err)
	}
	return data, nil
}

// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redhat-cip/dci-pipeline/internal/queuestore"
	"github.com/redhat-cip/dci-pipeline/pkg/executil"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// ErrNoResourcePlaceholder is returned by Admit when the command's argv
// does not contain the @RESOURCE placeholder.
var ErrNoResourcePlaceholder = errors.New("command does not contain @RESOURCE")

// errRecordRaced is returned internally when a dispatch attempt loses a
// race to consume a queue record; the caller treats this as "someone else
// took it" and retries the peek.
var errRecordRaced = errors.New("queue record consumed concurrently")

// unscheduleTimeout bounds how long Cancel waits for a dispatched command
// to exit after being signaled (spec §5 "Suspension points").
const unscheduleTimeout = 5 * time.Minute

// Scheduler implements C3: admit, dispatch, cancel, clean, and inspection
// of commands queued against pools in a Store.
type Scheduler struct {
	Store  *queuestore.Store
	Runner executil.Runner
	Log    logging.Logger
}

// New returns a Scheduler operating on store, spawning children with
// runner and logging through log.
func New(store *queuestore.Store, runner executil.Runner, log logging.Logger) *Scheduler {
	return &Scheduler{Store: store, Runner: runner, Log: log}
}

// AdmitOptions configures Admit.
type AdmitOptions struct {
	Cmd        []string
	WD         string
	Priority   int
	Remove     bool
	ExtraPools []string
	Dedup      bool
}

// Admit validates and admits a command into pool's queue, returning its
// assigned id. If Dedup is set (the default) and a queued or dispatched
// record with the same Cmd and WD already exists, admission is skipped
// and deduped is true.
func (s *Scheduler) Admit(pool string, opts AdmitOptions) (id int, deduped bool, err error) {
	if !s.Store.PoolExists(pool) {
		return 0, false, fmt.Errorf("%w: %s", queuestore.ErrPoolNotFound, pool)
	}

	hasPlaceholder := false
	for _, c := range opts.Cmd {
		if strings.Contains(c, "@RESOURCE") {
			hasPlaceholder = true
			break
		}
	}
	if !hasPlaceholder {
		return 0, false, ErrNoResourcePlaceholder
	}

	for _, p := range opts.ExtraPools {
		if !s.Store.PoolExists(p) {
			return 0, false, fmt.Errorf("%w: %s", queuestore.ErrPoolNotFound, p)
		}
	}

	seq := s.Store.Sequence(pool)
	lock, err := seq.Lock()
	if err != nil {
		return 0, false, err
	}
	defer lock.Unlock()

	first, next, err := seq.Get()
	if err != nil {
		return 0, false, err
	}

	if opts.Dedup {
		dup, err := s.hasDuplicate(pool, opts.Cmd, opts.WD)
		if err != nil {
			return 0, false, err
		}
		if dup {
			s.Log.Info("not scheduling a duplicated command", logging.NewField("pool", pool))
			return 0, true, nil
		}
	}

	rec := &Record{
		Cmd:        opts.Cmd,
		WD:         opts.WD,
		Priority:   opts.Priority,
		Remove:     opts.Remove,
		ExtraPools: opts.ExtraPools,
	}
	path := filepath.Join(s.Store.QueueDir(pool), strconv.Itoa(next))
	if err := rec.save(path); err != nil {
		return 0, false, err
	}
	if err := seq.Set(first, next+1); err != nil {
		return 0, false, err
	}

	s.Log.Info("command queued", logging.NewField("pool", pool), logging.NewField("id", next))
	return next, false, nil
}

func (s *Scheduler) hasDuplicate(pool string, cmd []string, wd string) (bool, error) {
	entries, err := os.ReadDir(s.Store.QueueDir(pool))
	if err != nil {
		return false, fmt.Errorf("listing queue directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if name == ".seq" || name == ".seq.lck" || strings.HasSuffix(name, ".tmp") {
			continue
		}
		rec, err := loadRecord(filepath.Join(s.Store.QueueDir(pool), name))
		if err != nil {
			continue
		}
		if equalArgv(rec.Cmd, cmd) && rec.WD == wd {
			return true, nil
		}
	}
	return false, nil
}

func equalArgv(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// queuedRecord is a plain (not yet dispatched) record found during a scan.
type queuedRecord struct {
	id   int
	path string
	rec  *Record
}

// queuedRecords lists every plain-named record currently in pool's queue.
func (s *Scheduler) queuedRecords(pool string) ([]queuedRecord, error) {
	entries, err := os.ReadDir(s.Store.QueueDir(pool))
	if err != nil {
		return nil, fmt.Errorf("listing queue directory: %w", err)
	}
	var out []queuedRecord
	for _, e := range entries {
		name := e.Name()
		if name == ".seq" || name == ".seq.lck" || strings.HasSuffix(name, dispatchedSuffix) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		id, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		path := filepath.Join(s.Store.QueueDir(pool), name)
		rec, err := loadRecord(path)
		if err != nil {
			continue
		}
		out = append(out, queuedRecord{id: id, path: path, rec: rec})
	}
	return out, nil
}

// peekHighest returns the queued record with the highest priority, ties
// broken by lowest id, excluding any id present in skipped. Returns a nil
// record when nothing qualifies.
func (s *Scheduler) peekHighest(pool string, skipped map[int]bool) (*queuedRecord, error) {
	records, err := s.queuedRecords(pool)
	if err != nil {
		return nil, err
	}
	var best *queuedRecord
	for i := range records {
		r := &records[i]
		if skipped[r.id] {
			continue
		}
		if best == nil || r.rec.Priority > best.rec.Priority ||
			(r.rec.Priority == best.rec.Priority && r.id < best.id) {
			best = r
		}
	}
	return best, nil
}

// consume renames a plain queue record to its dispatched (.exec) form and
// advances the sequence's first pointer if id was the oldest queued
// record. Returns errRecordRaced if a concurrent dispatcher already
// consumed it.
func (s *Scheduler) consume(pool string, id int) (string, error) {
	seq := s.Store.Sequence(pool)
	lock, err := seq.Lock()
	if err != nil {
		return "", err
	}
	defer lock.Unlock()

	first, next, err := seq.Get()
	if err != nil {
		return "", err
	}

	src := filepath.Join(s.Store.QueueDir(pool), strconv.Itoa(id))
	dst := src + dispatchedSuffix
	if err := os.Rename(src, dst); err != nil {
		if os.IsNotExist(err) {
			return "", errRecordRaced
		}
		return "", fmt.Errorf("consuming queue record %d: %w", id, err)
	}
	if id == first {
		if err := seq.Set(first+1, next); err != nil {
			return "", err
		}
	}
	return dst, nil
}

type runningJob struct {
	id      int
	rec     *Record
	path    string
	handle  *executil.Handle
	logFile *os.File
}

// Dispatch runs the "run" subcommand: repeatedly peek, book, consume, and
// spawn queued commands until no queued command remains or no primary
// resource is available, then waits for every spawned child and reclaims
// its resources.
func (s *Scheduler) Dispatch(pool string, consoleOutput bool) error {
	if !s.Store.PoolExists(pool) {
		return fmt.Errorf("%w: %s", queuestore.ErrPoolNotFound, pool)
	}

	skipped := map[int]bool{}
	var jobs []*runningJob

	for {
		next, err := s.peekHighest(pool, skipped)
		if err != nil {
			return err
		}
		if next == nil {
			break
		}

		extrasReady := true
		for _, p := range next.rec.ExtraPools {
			has, err := s.Store.HasAvailable(p)
			if err != nil {
				return err
			}
			if !has {
				extrasReady = false
				break
			}
		}
		if !extrasReady {
			skipped[next.id] = true
			continue
		}

		res, err := s.Store.Book(pool)
		if err != nil {
			return err
		}
		if res == "" {
			break
		}

		execPath, err := s.consume(pool, next.id)
		if err != nil {
			if errors.Is(err, errRecordRaced) {
				_ = s.Store.Free(pool, res)
				continue
			}
			return err
		}

		job, err := s.spawn(pool, next.id, execPath, next.rec, res, consoleOutput)
		if err != nil {
			s.Log.Error("unable to execute command", logging.NewField("id", next.id), logging.NewField("error", err.Error()))
			continue
		}
		jobs = append(jobs, job)
	}

	for _, j := range jobs {
		s.reap(j)
	}
	return nil
}

func (s *Scheduler) spawn(pool string, id int, execPath string, rec *Record, primary string, consoleOutput bool) (*runningJob, error) {
	booked := []Booking{{Resource: primary, Pool: pool}}
	for _, p := range rec.ExtraPools {
		r, err := s.Store.Book(p)
		if err != nil || r == "" {
			for _, b := range booked {
				_ = s.Store.Free(b.Pool, b.Resource)
			}
			_ = os.Remove(execPath)
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("no available resource in extra pool %s", p)
		}
		booked = append(booked, Booking{Resource: r, Pool: p})
	}

	if rec.Remove {
		if err := s.Store.RemoveBackingFile(pool, primary); err != nil {
			s.Log.Warn("removing resource backing file", logging.NewField("error", err.Error()))
		}
	}

	realCmd := make([]string, len(rec.Cmd))
	for i, c := range rec.Cmd {
		realCmd[i] = strings.ReplaceAll(c, "@RESOURCE", primary)
	}
	rec.RealCmd = realCmd
	rec.Resource = primary
	rec.JobID = id
	rec.Booked = booked

	env := s.childEnv(pool, id, booked)

	var out *os.File
	if !consoleOutput {
		logPath := filepath.Join(s.Store.LogDir(pool), strconv.Itoa(id))
		f, err := os.Create(logPath)
		if err != nil {
			s.freeAll(booked)
			_ = os.Remove(execPath)
			return nil, fmt.Errorf("creating log file: %w", err)
		}
		writeEnvHeader(f, env, rec.WD, realCmd)
		out = f
	}

	cmd := executil.Command{
		Name: realCmd[0],
		Args: realCmd[1:],
		Dir:  rec.WD,
		Env:  env,
	}

	var handle *executil.Handle
	var err error
	if out != nil {
		handle, err = s.Runner.Start(cmd, out)
	} else {
		handle, err = s.Runner.Start(cmd, nil)
	}
	if err != nil {
		s.freeAll(booked)
		_ = os.Remove(execPath)
		if out != nil {
			out.Close()
		}
		return nil, fmt.Errorf("starting command: %w", err)
	}

	rec.PID = handle.Pid()
	if err := rec.save(execPath); err != nil {
		s.Log.Warn("persisting dispatched record", logging.NewField("error", err.Error()))
	}

	s.Log.Info("running command", logging.NewField("id", id), logging.NewField("cmd", strings.Join(realCmd, " ")))
	return &runningJob{id: id, rec: rec, path: execPath, handle: handle, logFile: out}, nil
}

func (s *Scheduler) reap(j *runningJob) {
	_, _ = j.handle.Wait()
	if j.logFile != nil {
		j.logFile.Close()
	}
	s.freeAll(j.rec.Booked)
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		s.Log.Warn("removing dispatched record", logging.NewField("error", err.Error()))
	}
}

func (s *Scheduler) freeAll(booked []Booking) {
	for _, b := range booked {
		if err := s.Store.Free(b.Pool, b.Resource); err != nil {
			s.Log.Warn("freeing resource", logging.NewField("resource", b.Resource), logging.NewField("error", err.Error()))
		}
	}
}

func (s *Scheduler) childEnv(pool string, id int, booked []Booking) map[string]string {
	env := map[string]string{
		"DCI_QUEUE":     pool,
		"DCI_QUEUE_RES": booked[0].Resource,
		"DCI_QUEUE_ID":  strconv.Itoa(id),
		"DCI_QUEUE_JOBID": fmt.Sprintf("%s.%d", pool, id),
	}
	for i, b := range booked[1:] {
		n := i + 1
		env[fmt.Sprintf("DCI_QUEUE%d", n)] = b.Pool
		env[fmt.Sprintf("DCI_QUEUE_RES%d", n)] = b.Resource
	}
	return env
}

func writeEnvHeader(f *os.File, env map[string]string, wd string, realCmd []string) {
	for _, k := range []string{"DCI_QUEUE", "DCI_QUEUE_RES", "DCI_QUEUE_ID", "DCI_QUEUE_JOBID"} {
		fmt.Fprintf(f, "+ %s=%s\n", k, env[k])
	}
	for n := 1; ; n++ {
		k1 := fmt.Sprintf("DCI_QUEUE%d", n)
		v, ok := env[k1]
		if !ok {
			break
		}
		fmt.Fprintf(f, "+ %s=%s\n", k1, v)
		fmt.Fprintf(f, "+ DCI_QUEUE_RES%d=%s\n", n, env[fmt.Sprintf("DCI_QUEUE_RES%d", n)])
	}
	fmt.Fprintf(f, "+ cd %s\n", wd)
	fmt.Fprintf(f, "+ %s\n", strings.Join(realCmd, " "))
}

// Cancel implements the "unschedule" subcommand. A plain queued record is
// simply deleted. A dispatched record is signaled with SIGTERM and Cancel
// waits up to unscheduleTimeout for the dispatcher's reap loop to remove
// it. A missing record of either form is a no-op.
func (s *Scheduler) Cancel(pool string, id int) error {
	queuePath := filepath.Join(s.Store.QueueDir(pool), strconv.Itoa(id))
	if err := os.Remove(queuePath); err == nil {
		s.Log.Info("un-queuing command", logging.NewField("id", id), logging.NewField("pool", pool))
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("removing queue record %d: %w", id, err)
	}

	execPath := queuePath + dispatchedSuffix
	rec, err := loadRecord(execPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading dispatched record %d: %w", id, err)
	}
	if rec.PID == 0 {
		return fmt.Errorf("unable to stop command %d: no pid recorded", id)
	}

	proc, err := os.FindProcess(rec.PID)
	if err == nil {
		_ = proc.Signal(syscallTerminate())
	}

	deadline := time.Now().Add(unscheduleTimeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(execPath); os.IsNotExist(err) {
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("unable to finish command %d", id)
}

// Clean implements the "clean" subcommand: for each dispatched record,
// probe its pid with signal 0; if the process is gone, reclaim its
// resources and delete the record.
func (s *Scheduler) Clean(pool string) error {
	entries, err := os.ReadDir(s.Store.QueueDir(pool))
	if err != nil {
		return fmt.Errorf("listing queue directory: %w", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), dispatchedSuffix) {
			continue
		}
		path := filepath.Join(s.Store.QueueDir(pool), e.Name())
		rec, err := loadRecord(path)
		if err != nil {
			continue
		}
		if rec.PID == 0 || rec.Resource == "" {
			continue
		}
		if processAlive(rec.PID) {
			continue
		}
		s.Log.Info("stale pid found", logging.NewField("pid", rec.PID), logging.NewField("resource", rec.Resource))
		s.freeAll(rec.Booked)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale record: %w", err)
		}
	}
	return nil
}

// StillQueued reports whether id is still present as a plain (not yet
// dispatched, and not yet completed) queue record in pool. Block-mode
// scheduling polls this to know when its own admitted command has run.
func (s *Scheduler) StillQueued(pool string, id int) bool {
	_, err := os.Stat(filepath.Join(s.Store.QueueDir(pool), strconv.Itoa(id)))
	return err == nil
}

// Search returns the id of the first queued or dispatched command whose
// argv exactly matches cmd.
func (s *Scheduler) Search(pool string, cmd []string) (int, bool, error) {
	return s.scanFor(pool, func(r *Record) bool { return equalArgv(r.Cmd, cmd) })
}

// SearchDir returns the id of the first queued or dispatched command
// whose working directory matches dir.
func (s *Scheduler) SearchDir(pool string, dir string) (int, bool, error) {
	return s.scanFor(pool, func(r *Record) bool { return r.WD == dir })
}

func (s *Scheduler) scanFor(pool string, match func(*Record) bool) (int, bool, error) {
	seq := s.Store.Sequence(pool)
	first, next, err := seq.Get()
	if err != nil {
		return 0, false, err
	}
	for idx := first; idx < next; idx++ {
		base := filepath.Join(s.Store.QueueDir(pool), strconv.Itoa(idx))
		path := base
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = base + dispatchedSuffix
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}
		}
		rec, err := loadRecord(path)
		if err != nil {
			continue
		}
		if match(rec) {
			return idx, true, nil
		}
	}
	return 0, false, nil
}

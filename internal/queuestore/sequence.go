// SPDX-License-Identifier: Apache-2.0

// Package queuestore implements the on-disk layout dci-queue uses to admit
// and track commands: a sequence counter per pool (this file) and the pool
// directory tree itself (pool.go).
package queuestore

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// lockRetryInterval is how long Sequence.Lock sleeps between contended
// acquisition attempts. The spec calls for indefinite retry, not a timeout.
const lockRetryInterval = time.Second

// Sequence is the (first, next) counter pair for one pool's queue,
// guarded by a companion advisory lock file. first is the lowest
// identifier not yet dispatched; next is the identifier that will be
// assigned to the next admitted command.
type Sequence struct {
	dir string // queue/<pool>
}

// NewSequence returns the sequence counter rooted at the given pool queue
// directory (<top>/queue/<pool>).
func NewSequence(queueDir string) *Sequence {
	return &Sequence{dir: queueDir}
}

func (s *Sequence) seqPath() string {
	return s.dir + "/.seq"
}

func (s *Sequence) lockPath() string {
	return s.dir + "/.seq.lck"
}

// Exists reports whether the counter file has been created yet.
func (s *Sequence) Exists() bool {
	_, err := os.Stat(s.seqPath())
	return err == nil
}

// Lock is a held advisory whole-file lock on the sequence's companion
// .seq.lck file. It must be released with Unlock.
type Lock struct {
	f *os.File
}

// Lock acquires the sequence's advisory lock, blocking (and retrying every
// lockRetryInterval) until it succeeds. A single process should not call
// Lock re-entrantly: the underlying flock is not recursive.
func (s *Sequence) Lock() (*Lock, error) {
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening sequence lock %s: %w", s.lockPath(), err)
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("locking %s: %w", s.lockPath(), err)
		}
		time.Sleep(lockRetryInterval)
	}
}

// Unlock releases the lock and closes its file descriptor.
func (l *Lock) Unlock() error {
	defer l.f.Close()
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlocking: %w", err)
	}
	return nil
}

// Get reads the current (first, next) pair. It returns an error if the
// counter file does not exist yet; Init creates it at (1, 1).
func (s *Sequence) Get() (first, next int, err error) {
	raw, err := os.ReadFile(s.seqPath())
	if err != nil {
		return 0, 0, fmt.Errorf("reading sequence file %s: %w", s.seqPath(), err)
	}
	parts := strings.Fields(string(raw))
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed sequence file %s: %q", s.seqPath(), raw)
	}
	first, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed sequence file %s: %w", s.seqPath(), err)
	}
	next, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed sequence file %s: %w", s.seqPath(), err)
	}
	return first, next, nil
}

// Set writes the (first, next) pair atomically (write to a temp file,
// rename over the real one) so a reader never observes a half-written
// counter.
func (s *Sequence) Set(first, next int) error {
	tmp := s.seqPath() + ".tmp"
	content := fmt.Sprintf("%d %d", first, next)
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing sequence temp file: %w", err)
	}
	if err := os.Rename(tmp, s.seqPath()); err != nil {
		return fmt.Errorf("renaming sequence file into place: %w", err)
	}
	return nil
}

// Init creates the counter file at (1, 1) if it does not already exist.
// Per the spec's resolved Open Question, a fresh pool starts initialized
// rather than leaving the counter absent until the first admission.
func (s *Sequence) Init() error {
	if s.Exists() {
		return nil
	}
	return s.Set(1, 1)
}

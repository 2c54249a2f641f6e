// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redhat-cip/dci-pipeline/internal/queuestore"
	"github.com/redhat-cip/dci-pipeline/pkg/executil"
	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

// fakeRunner records every command Dispatch starts and runs /bin/true in
// its place, so tests exercise the scheduler's own bookkeeping rather than
// the commands themselves.
type fakeRunner struct {
	started []executil.Command
}

func (f *fakeRunner) Run(ctx context.Context, cmd executil.Command) (*executil.Result, error) {
	return &executil.Result{}, nil
}

func (f *fakeRunner) RunStream(ctx context.Context, cmd executil.Command, output io.Writer) error {
	return nil
}

func (f *fakeRunner) Start(cmd executil.Command, output io.Writer) (*executil.Handle, error) {
	f.started = append(f.started, cmd)
	// /bin/true exits immediately and is present on every POSIX system
	// the teacher's own tests assume (see pkg/executil's own tests).
	return executil.NewRunner().Start(executil.Command{Name: "/bin/true"}, output)
}

func newTestScheduler(t *testing.T) (*Scheduler, *queuestore.Store) {
	t.Helper()
	top := t.TempDir()
	store := queuestore.New(top)
	require.NoError(t, store.AddPool("lab"))
	log := logging.NewLogger(false)
	return New(store, &fakeRunner{}, log), store
}

func TestAdmit_RequiresResourcePlaceholder(t *testing.T) {
	sched, _ := newTestScheduler(t)
	_, _, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "hi"}})
	require.ErrorIs(t, err, ErrNoResourcePlaceholder)
}

func TestAdmit_UnknownExtraPool_Fails(t *testing.T) {
	sched, _ := newTestScheduler(t)
	_, _, err := sched.Admit("lab", AdmitOptions{
		Cmd:        []string{"echo", "@RESOURCE"},
		ExtraPools: []string{"ghost"},
	})
	require.ErrorIs(t, err, queuestore.ErrPoolNotFound)
}

func TestAdmit_AssignsIncreasingIDs(t *testing.T) {
	sched, _ := newTestScheduler(t)
	id1, dup, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE", "a"}})
	require.NoError(t, err)
	require.False(t, dup)
	require.Equal(t, 1, id1)

	id2, dup, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE", "b"}})
	require.NoError(t, err)
	require.False(t, dup)
	require.Equal(t, 2, id2)
}

func TestAdmit_Dedup_SkipsMatchingCommand(t *testing.T) {
	sched, _ := newTestScheduler(t)
	id1, _, err := sched.Admit("lab", AdmitOptions{
		Cmd:   []string{"echo", "@RESOURCE"},
		WD:    "/tmp",
		Dedup: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, id1)

	id2, dup, err := sched.Admit("lab", AdmitOptions{
		Cmd:   []string{"echo", "@RESOURCE"},
		WD:    "/tmp",
		Dedup: true,
	})
	require.NoError(t, err)
	require.True(t, dup)
	require.Equal(t, 0, id2)
}

func TestDispatch_RunsHighestPriorityFirst(t *testing.T) {
	sched, store := newTestScheduler(t)
	require.NoError(t, store.AddResource("lab", "res1", false))
	require.NoError(t, store.AddResource("lab", "res2", false))

	_, _, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE", "low"}, Priority: 1})
	require.NoError(t, err)
	_, _, err = sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE", "high"}, Priority: 10})
	require.NoError(t, err)

	runner := &fakeRunner{}
	sched.Runner = runner
	require.NoError(t, sched.Dispatch("lab", true))

	require.Len(t, runner.started, 2)
	require.Contains(t, runner.started[0].Args, "high")
}

func TestDispatch_NoAvailableResource_LeavesQueueIntact(t *testing.T) {
	sched, store := newTestScheduler(t)
	_, _, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE"}})
	require.NoError(t, err)

	require.NoError(t, sched.Dispatch("lab", true))

	entries, err := os.ReadDir(store.QueueDir("lab"))
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if e.Name() == "1" {
			found = true
		}
	}
	require.True(t, found, "record should remain queued with no resource available")
}

func TestDispatch_SkipsRecordWhoseExtraPoolHasNoResource(t *testing.T) {
	sched, store := newTestScheduler(t)
	require.NoError(t, store.AddPool("extra"))
	require.NoError(t, store.AddResource("lab", "res1", false))

	_, _, err := sched.Admit("lab", AdmitOptions{
		Cmd:        []string{"echo", "@RESOURCE", "needs-extra"},
		ExtraPools: []string{"extra"},
	})
	require.NoError(t, err)
	_, _, err = sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE", "plain"}})
	require.NoError(t, err)

	runner := &fakeRunner{}
	sched.Runner = runner
	require.NoError(t, sched.Dispatch("lab", true))

	require.Len(t, runner.started, 1)
	require.Contains(t, runner.started[0].Args, "plain")

	avail, err := store.Available("lab")
	require.NoError(t, err)
	require.Equal(t, []string{"res1"}, avail, "res1 is freed once the plain command exits; the skipped record holds no booking")
}

func TestDispatch_FreesResourceAfterCompletion(t *testing.T) {
	sched, store := newTestScheduler(t)
	require.NoError(t, store.AddResource("lab", "res1", false))

	_, _, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE"}})
	require.NoError(t, err)

	require.NoError(t, sched.Dispatch("lab", true))

	avail, err := store.Available("lab")
	require.NoError(t, err)
	require.Equal(t, []string{"res1"}, avail)

	entries, err := os.ReadDir(store.QueueDir("lab"))
	require.NoError(t, err)
	for _, e := range entries {
		require.NotEqual(t, "1.exec", e.Name(), "dispatched record should be reclaimed once the job completes")
	}
}

func TestCancel_RemovesPlainQueueRecord(t *testing.T) {
	sched, store := newTestScheduler(t)
	id, _, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE"}})
	require.NoError(t, err)

	require.NoError(t, sched.Cancel("lab", id))

	_, err = os.Stat(filepath.Join(store.QueueDir("lab"), "1"))
	require.True(t, os.IsNotExist(err))
}

func TestCancel_MissingRecord_IsNoop(t *testing.T) {
	sched, _ := newTestScheduler(t)
	require.NoError(t, sched.Cancel("lab", 99))
}

func TestClean_ReclaimsRecordWithDeadPID(t *testing.T) {
	sched, store := newTestScheduler(t)
	require.NoError(t, store.AddResource("lab", "res1", true))

	rec := &Record{
		Cmd:      []string{"echo", "@RESOURCE"},
		RealCmd:  []string{"echo", "res1"},
		Resource: "res1",
		Booked:   []Booking{{Resource: "res1", Pool: "lab"}},
		PID:      1 << 30, // implausible pid: guaranteed not to be alive
	}
	path := filepath.Join(store.QueueDir("lab"), "1.exec")
	require.NoError(t, rec.save(path))

	avail, err := store.Available("lab")
	require.NoError(t, err)
	require.Empty(t, avail)

	require.NoError(t, sched.Clean("lab"))

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	avail, err = store.Available("lab")
	require.NoError(t, err)
	require.Equal(t, []string{"res1"}, avail)
}

func TestSearch_FindsQueuedCommandByArgv(t *testing.T) {
	sched, _ := newTestScheduler(t)
	_, _, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE", "target"}})
	require.NoError(t, err)

	id, found, err := sched.Search("lab", []string{"echo", "@RESOURCE", "target"})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, id)

	_, found, err = sched.Search("lab", []string{"echo", "@RESOURCE", "nope"})
	require.NoError(t, err)
	require.False(t, found)
}

func TestSearchDir_FindsQueuedCommandByWorkingDirectory(t *testing.T) {
	sched, _ := newTestScheduler(t)
	_, _, err := sched.Admit("lab", AdmitOptions{Cmd: []string{"echo", "@RESOURCE"}, WD: "/srv/job"})
	require.NoError(t, err)

	id, found, err := sched.SearchDir("lab", "/srv/job")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, id)
}

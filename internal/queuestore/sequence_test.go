// SPDX-License-Identifier: Apache-2.0

package queuestore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSequence_InitSetsOneOne(t *testing.T) {
	dir := t.TempDir()
	seq := NewSequence(dir)
	require.False(t, seq.Exists())

	require.NoError(t, seq.Init())
	first, next, err := seq.Get()
	require.NoError(t, err)
	require.Equal(t, 1, first)
	require.Equal(t, 1, next)
}

func TestSequence_Init_DoesNotResetExisting(t *testing.T) {
	dir := t.TempDir()
	seq := NewSequence(dir)
	require.NoError(t, seq.Set(4, 9))
	require.NoError(t, seq.Init())

	first, next, err := seq.Get()
	require.NoError(t, err)
	require.Equal(t, 4, first)
	require.Equal(t, 9, next)
}

func TestSequence_LockExcludesConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	seq := NewSequence(dir)
	require.NoError(t, seq.Init())

	lock, err := seq.Lock()
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		other := NewSequence(dir)
		l2, err := other.Lock()
		require.NoError(t, err)
		close(acquired)
		require.NoError(t, l2.Unlock())
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is still held")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, lock.Unlock())
	<-acquired
}

func TestSequence_ConcurrentIncrementsAreSerialized(t *testing.T) {
	dir := t.TempDir()
	seq := NewSequence(dir)
	require.NoError(t, seq.Init())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSequence(dir)
			lock, err := s.Lock()
			require.NoError(t, err)
			defer lock.Unlock()

			first, next, err := s.Get()
			require.NoError(t, err)
			require.NoError(t, s.Set(first, next+1))
		}()
	}
	wg.Wait()

	_, next, err := seq.Get()
	require.NoError(t, err)
	require.Equal(t, 1+n, next)
}

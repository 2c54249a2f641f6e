// SPDX-License-Identifier: Apache-2.0

package queuestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddPool_CreatesLayoutAndInitializesSequence(t *testing.T) {
	top := t.TempDir()
	store := New(top)

	require.NoError(t, store.AddPool("lab"))
	require.True(t, store.PoolExists("lab"))

	for _, dir := range []string{
		store.PoolDir("lab"),
		store.AvailableDir("lab"),
		store.QueueDir("lab"),
		store.ReasonDir("lab"),
		store.LogDir("lab"),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	first, next, err := store.Sequence("lab").Get()
	require.NoError(t, err)
	require.Equal(t, 1, first)
	require.Equal(t, 1, next)
}

func TestAddPool_Idempotent(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))

	seq := store.Sequence("lab")
	require.NoError(t, seq.Set(3, 5))

	require.NoError(t, store.AddPool("lab"))

	first, next, err := seq.Get()
	require.NoError(t, err)
	require.Equal(t, 3, first, "re-adding an existing pool must not reset an in-progress sequence")
	require.Equal(t, 5, next)
}

func TestAddPool_RemovePool_RestoresFilesystem(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.RemovePool("lab"))

	require.False(t, store.PoolExists("lab"))
	_, err := os.Stat(store.QueueDir("lab"))
	require.True(t, os.IsNotExist(err))
}

func TestAddResource_CreatesAvailabilityLink(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.AddResource("lab", "cluster1", false))

	avail, err := store.Available("lab")
	require.NoError(t, err)
	require.Equal(t, []string{"cluster1"}, avail)

	target, err := os.Readlink(filepath.Join(store.AvailableDir("lab"), "cluster1"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(store.PoolDir("lab"), "cluster1"), target)
}

func TestAddResource_Referenced_SkipsAvailabilityLink(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.AddResource("lab", "cluster1", true))

	avail, err := store.Available("lab")
	require.NoError(t, err)
	require.Empty(t, avail)
}

func TestRemoveResource_WithoutForce_Blocks(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.AddResource("lab", "cluster1", false))

	require.NoError(t, store.RemoveResource("lab", "cluster1", "broken switch", false))

	_, err := os.Stat(filepath.Join(store.PoolDir("lab"), "cluster1"))
	require.True(t, os.IsNotExist(err))

	reasons, err := store.Reasons("lab")
	require.NoError(t, err)
	require.Len(t, reasons, 1)
	require.Equal(t, "broken switch", reasons[0].Reason)
	require.Equal(t, "cluster1", reasons[0].Resource)
}

func TestRemoveResource_WithoutForce_NeverCreated_Fails(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))

	err := store.RemoveResource("lab", "ghost", "irrelevant", false)
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestRemoveResource_Force_ClearsReasonToo(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.AddResource("lab", "cluster1", false))
	require.NoError(t, store.RemoveResource("lab", "cluster1", "broken", false))

	require.NoError(t, store.RemoveResource("lab", "cluster1", "", true))

	reasons, err := store.Reasons("lab")
	require.NoError(t, err)
	require.Empty(t, reasons)
}

func TestAddResource_RehabilitatesBlockedResource(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.AddResource("lab", "cluster1", false))
	require.NoError(t, store.RemoveResource("lab", "cluster1", "broken", false))
	require.True(t, store.IsBlocked("lab", "cluster1"))

	require.NoError(t, store.AddResource("lab", "cluster1", false))
	require.False(t, store.IsBlocked("lab", "cluster1"))
}

func TestBookFree_RoundTrip_LeavesCountsUnchanged(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.AddResource("lab", "cluster1", false))

	res, err := store.Book("lab")
	require.NoError(t, err)
	require.Equal(t, "cluster1", res)

	avail, err := store.Available("lab")
	require.NoError(t, err)
	require.Empty(t, avail)

	require.NoError(t, store.Free("lab", res))

	avail, err = store.Available("lab")
	require.NoError(t, err)
	require.Equal(t, []string{"cluster1"}, avail)
}

func TestBook_NoneAvailable_ReturnsEmpty(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))

	res, err := store.Book("lab")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestFree_BackingFileRemoved_DoesNotRelink(t *testing.T) {
	top := t.TempDir()
	store := New(top)
	require.NoError(t, store.AddPool("lab"))
	require.NoError(t, store.AddResource("lab", "cluster1", false))

	res, err := store.Book("lab")
	require.NoError(t, err)
	require.NoError(t, store.RemoveBackingFile("lab", res))
	require.NoError(t, store.Free("lab", res))

	avail, err := store.Available("lab")
	require.NoError(t, err)
	require.Empty(t, avail)
}

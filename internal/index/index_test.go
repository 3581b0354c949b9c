package index_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iamNilotpal/kegdb/internal/index"
	"github.com/iamNilotpal/kegdb/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.New(&index.Config{Logger: logger.Noop()})
	require.NoError(t, err)
	return idx
}

func Test_Index_SetGetDelete(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)

	_, ok := idx.Get("missing")
	require.False(t, ok)

	rp := index.RecordPointer{FileID: 1, ValuePos: 10, ValueSize: 5, Timestamp: 100, Key: "a"}
	idx.Set("a", rp)

	got, ok := idx.Get("a")
	require.True(t, ok)
	require.Equal(t, rp, got)
	require.Equal(t, 1, idx.Len())

	idx.Delete("a")
	_, ok = idx.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, idx.Len())
}

func Test_Index_DeleteAbsentKeyIsNoop(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	idx.Delete("never-set")
	require.Equal(t, 0, idx.Len())
}

func Test_Index_Snapshot(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	idx.Set("a", index.RecordPointer{FileID: 1, ValuePos: 0, ValueSize: 3, Timestamp: 10, Key: "a"})
	idx.Set("b", index.RecordPointer{FileID: 2, ValuePos: 4, ValueSize: 5, Timestamp: 20, Key: "b"})

	snap := idx.Snapshot()
	require.Len(t, snap, 2)
	sort.Slice(snap, func(i, j int) bool { return snap[i].Key < snap[j].Key })

	want := []index.RecordPointer{
		{FileID: 1, ValuePos: 0, ValueSize: 3, Timestamp: 10, Key: "a"},
		{FileID: 2, ValuePos: 4, ValueSize: 5, Timestamp: 20, Key: "b"},
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	snap[0] = index.RecordPointer{Key: "tampered"}
	again, ok := idx.Get("a")
	require.True(t, ok)
	require.Equal(t, "a", again.Key, "snapshot must be an independent copy, mutating it must not affect the index")
}

func Test_Index_CloseIsOneShot(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	require.NoError(t, idx.Close())
	require.ErrorIs(t, idx.Close(), index.ErrIndexClosed)
}

package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/kegdb/pkg/logger"
	"github.com/stretchr/testify/require"
)

func Test_DataFile_AppendAndReadExact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := logger.Noop()

	df, err := CreateActiveDataFile(dir, 0, log)
	require.NoError(t, err)
	defer df.Close()

	pos1, err := df.Append(100, []byte("a"), []byte("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"))
	require.NoError(t, err)

	pos2, err := df.Append(200, []byte("b"), []byte("yyy"))
	require.NoError(t, err)
	require.Greater(t, pos2, pos1)

	v1, err := df.ReadExact(pos1, 32)
	require.NoError(t, err)
	require.Equal(t, "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", string(v1))

	v2, err := df.ReadExact(pos2, 3)
	require.NoError(t, err)
	require.Equal(t, "yyy", string(v2))
}

func Test_DataFile_SealClosesWriterButKeepsReader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := logger.Noop()

	df, err := CreateActiveDataFile(dir, 0, log)
	require.NoError(t, err)

	pos, err := df.Append(1, []byte("k"), []byte("v"))
	require.NoError(t, err)

	require.NoError(t, df.Seal())
	require.True(t, df.Sealed())

	_, err = df.Append(2, []byte("k2"), []byte("v2"))
	require.Error(t, err, "append on a sealed segment must fail")

	v, err := df.ReadExact(pos, 1)
	require.NoError(t, err)
	require.Equal(t, "v", string(v))

	require.NoError(t, df.Close())
}

func Test_DataScanner_ReplaysEveryRecordInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := logger.Noop()

	df, err := CreateActiveDataFile(dir, 7, log)
	require.NoError(t, err)

	_, err = df.Append(1, []byte("a"), []byte("1"))
	require.NoError(t, err)
	_, err = df.Append(2, []byte("b"), []byte("2"))
	require.NoError(t, err)
	_, err = df.Append(3, []byte("a"), nil) // tombstone
	require.NoError(t, err)
	require.NoError(t, df.Close())

	sc, err := OpenDataScanner(dir, 7)
	require.NoError(t, err)
	defer sc.Close()

	var keys []string
	var tombstones []bool
	for sc.Next() {
		rec := sc.Record()
		keys = append(keys, string(rec.Key))
		tombstones = append(tombstones, rec.IsTombstone())
	}

	require.NoError(t, sc.Err())
	require.False(t, sc.Torn())
	require.Equal(t, []string{"a", "b", "a"}, keys)
	require.Equal(t, []bool{false, false, true}, tombstones)
}

func Test_DataScanner_TornTailStopsCleanly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := logger.Noop()

	df, err := CreateActiveDataFile(dir, 3, log)
	require.NoError(t, err)
	_, err = df.Append(1, []byte("a"), []byte("1"))
	require.NoError(t, err)
	_, err = df.Append(2, []byte("b"), []byte("2"))
	require.NoError(t, err)
	require.NoError(t, df.Close())

	path := filepath.Join(dir, "3.data")
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-1))

	sc, err := OpenDataScanner(dir, 3)
	require.NoError(t, err)
	defer sc.Close()

	var keys []string
	for sc.Next() {
		keys = append(keys, string(sc.Record().Key))
	}

	require.True(t, sc.Torn())
	require.Equal(t, []string{"a"}, keys, "the truncated trailing record must not appear")
}

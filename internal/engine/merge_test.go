package engine_test

import (
	"os"
	"testing"

	"github.com/iamNilotpal/kegdb/internal/engine"
	"github.com/iamNilotpal/kegdb/pkg/logger"
	"github.com/iamNilotpal/kegdb/pkg/options"
	"github.com/stretchr/testify/require"
)

func Test_Engine_Merge_DropsSupersededAndRetainsLive(t *testing.T) {
	t.Parallel()

	eng, dir := newTestEngine(t, options.WithSegmentSize(64))

	value := []byte("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	for i := 0; i < 3; i++ {
		require.NoError(t, eng.Put("a", value))
	}
	require.NoError(t, eng.Put("b", []byte("stays")))
	_, err := eng.Delete("b")
	require.NoError(t, err)
	require.NoError(t, eng.Put("b", []byte("comes-back")))

	entriesBefore, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Merge())
	entriesAfter, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.LessOrEqual(t, len(entriesAfter), len(entriesBefore), "merge must not leave more files than it started with")

	got, err := eng.Get("a")
	require.NoError(t, err)
	require.Equal(t, value, got)

	got, err = eng.Get("b")
	require.NoError(t, err)
	require.Equal(t, "comes-back", string(got))

	require.NoError(t, eng.Close())

	opts := options.Apply(options.WithDefaultOptions(), options.WithDataDir(dir))
	reopened, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	defer reopened.Close()

	got, err = reopened.Get("a")
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func Test_Engine_Merge_NoopWithoutSealedSegments(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	defer eng.Close()

	require.NoError(t, eng.Put("a", []byte("1")))
	require.NoError(t, eng.Merge())

	got, err := eng.Get("a")
	require.NoError(t, err)
	require.Equal(t, "1", string(got))
}

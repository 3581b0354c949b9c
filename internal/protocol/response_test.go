package protocol_test

import (
	"bytes"
	"testing"

	"github.com/iamNilotpal/kegdb/internal/protocol"
	"github.com/stretchr/testify/require"
)

func Test_ResponseWriter_Value(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := protocol.NewResponseWriter(&buf)

	require.NoError(t, rw.WriteValue("a", 0, []byte("k"), nil))
	require.NoError(t, rw.WriteEnd())
	require.NoError(t, rw.Flush())

	require.Equal(t, "VALUE a 0 1\r\nk\r\nEND\r\n", buf.String())
}

func Test_ResponseWriter_ValueWithCas(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rw := protocol.NewResponseWriter(&buf)

	cas := uint64(42)
	require.NoError(t, rw.WriteValue("a", 0, []byte("k"), &cas))
	require.NoError(t, rw.Flush())

	require.Equal(t, "VALUE a 0 1 42\r\nk\r\n", buf.String())
}

func Test_ResponseWriter_SimpleLines(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*protocol.ResponseWriter) error{
		"STORED\r\n":     (*protocol.ResponseWriter).WriteStored,
		"NOT_STORED\r\n": (*protocol.ResponseWriter).WriteNotStored,
		"DELETED\r\n":    (*protocol.ResponseWriter).WriteDeleted,
		"NOT_FOUND\r\n":  (*protocol.ResponseWriter).WriteNotFound,
		"EXISTS\r\n":     (*protocol.ResponseWriter).WriteExists,
		"OK\r\n":         (*protocol.ResponseWriter).WriteOK,
		"END\r\n":        (*protocol.ResponseWriter).WriteEnd,
		"ERROR\r\n":      (*protocol.ResponseWriter).WriteError,
	}

	for want, fn := range cases {
		var buf bytes.Buffer
		rw := protocol.NewResponseWriter(&buf)
		require.NoError(t, fn(rw))
		require.NoError(t, rw.Flush())
		require.Equal(t, want, buf.String())
	}
}

package protocol_test

import (
	"strings"
	"testing"

	"github.com/iamNilotpal/kegdb/internal/protocol"
	"github.com/stretchr/testify/require"
)

func Test_Parser_Retrieval(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("get a b c\r\n"))
	cmd, err := p.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, protocol.KindRetrieval, cmd.Kind)
	require.Equal(t, []string{"a", "b", "c"}, cmd.Keys)
	require.False(t, cmd.WithCas)
}

func Test_Parser_GetsSetsWithCas(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("gets a\r\n"))
	cmd, err := p.ReadCommand()
	require.NoError(t, err)
	require.True(t, cmd.WithCas)
}

func Test_Parser_Store(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("set a 0 0 1\r\nk\r\n"))
	cmd, err := p.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, protocol.KindStore, cmd.Kind)
	require.Equal(t, "set", cmd.Verb)
	require.Equal(t, "a", cmd.Key)
	require.Equal(t, 1, cmd.Bytes)
	require.Equal(t, "k", string(cmd.DataBlock))
	require.True(t, cmd.IsStorageVerb())
}

func Test_Parser_StoreWithNoreply(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("set a 0 0 1 noreply\r\nk\r\n"))
	cmd, err := p.ReadCommand()
	require.NoError(t, err)
	require.True(t, cmd.NoReply)
}

func Test_Parser_Cas(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("cas a 0 0 1 42\r\nk\r\n"))
	cmd, err := p.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, "cas", cmd.Verb)
	require.Equal(t, uint64(42), cmd.CasUnique)
	require.False(t, cmd.IsStorageVerb())
}

func Test_Parser_Delete(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("delete a\r\n"))
	cmd, err := p.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, protocol.KindDelete, cmd.Kind)
	require.Equal(t, "a", cmd.Key)
}

func Test_Parser_ControlVerbs(t *testing.T) {
	t.Parallel()

	for line, want := range map[string]protocol.Kind{
		"version\r\n":   protocol.KindVersion,
		"flush_all\r\n": protocol.KindFlushAll,
		"quit\r\n":      protocol.KindQuit,
	} {
		p := protocol.NewParser(strings.NewReader(line))
		cmd, err := p.ReadCommand()
		require.NoError(t, err)
		require.Equal(t, want, cmd.Kind)
	}
}

func Test_Parser_UnknownVerbIsProtocolError(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("frobnicate a\r\n"))
	_, err := p.ReadCommand()
	require.Error(t, err)
	require.True(t, protocol.IsProtocolError(err))
}

func Test_Parser_MalformedStoreHeaderIsProtocolError(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("set a notanumber 0 1\r\nk\r\n"))
	_, err := p.ReadCommand()
	require.Error(t, err)
	require.True(t, protocol.IsProtocolError(err))
}

func Test_Parser_BadDataChunkTrailerIsProtocolError(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("set a 0 0 1\r\nkXX"))
	_, err := p.ReadCommand()
	require.Error(t, err)
	require.True(t, protocol.IsProtocolError(err))
}

func Test_Parser_TruncatedConnectionIsRawError(t *testing.T) {
	t.Parallel()

	p := protocol.NewParser(strings.NewReader("set a 0 0 10\r\nshort"))
	_, err := p.ReadCommand()
	require.Error(t, err)
	require.False(t, protocol.IsProtocolError(err), "a dead connection must not be reported as a recoverable protocol error")
}

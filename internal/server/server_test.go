package server_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/iamNilotpal/kegdb/internal/engine"
	"github.com/iamNilotpal/kegdb/internal/server"
	"github.com/iamNilotpal/kegdb/pkg/logger"
	"github.com/iamNilotpal/kegdb/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	dir := t.TempDir()
	opts := options.Apply(options.WithDefaultOptions(), options.WithDataDir(dir))

	eng, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Noop()})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	srv, err := server.New("127.0.0.1:0", eng, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	go srv.Serve()
	return srv
}

func dial(t *testing.T, srv *server.Server) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn, bufio.NewReader(conn)
}

func Test_Server_SeedScenario(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	conn, reader := dial(t, srv)

	send := func(s string) {
		_, err := conn.Write([]byte(s))
		require.NoError(t, err)
	}
	readLine := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		return line
	}

	for i := 0; i < 3; i++ {
		send("set a 0 0 1\r\nk\r\n")
		require.Equal(t, "STORED\r\n", readLine())
	}

	send("delete b\r\n")
	require.Equal(t, "NOT_FOUND\r\n", readLine())

	send("gets a\r\n")
	require.Equal(t, "VALUE a 0 1\r\n", readLine())
	require.Equal(t, "k\r\n", readLine())
	require.Equal(t, "END\r\n", readLine())
}

func Test_Server_GetMiss(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	conn, reader := dial(t, srv)

	_, err := conn.Write([]byte("get nope\r\n"))
	require.NoError(t, err)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "END\r\n", line)
}

func Test_Server_MalformedCommandKeepsConnectionOpen(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	conn, reader := dial(t, srv)

	_, err := conn.Write([]byte("bogus\r\n"))
	require.NoError(t, err)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Regexp(t, "^CLIENT_ERROR", line)

	_, err = conn.Write([]byte("version\r\n"))
	require.NoError(t, err)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.Regexp(t, "^VERSION", line)
}

func Test_Server_Quit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	conn, reader := dial(t, srv)

	_, err := conn.Write([]byte("quit\r\n"))
	require.NoError(t, err)

	_, err = reader.ReadString('\n')
	require.Error(t, err, "quit must close the connection without a response")
}

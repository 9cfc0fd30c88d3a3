package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregjesl/netspatch/internal/job"
	"github.com/gregjesl/netspatch/internal/wire"
)

func startServer(t *testing.T, spans []int, fuse time.Duration) *Server {
	t.Helper()
	manager, err := job.NewManager(spans)
	require.NoError(t, err)

	srv, err := Start("127.0.0.1", 0, manager, fuse)
	require.NoError(t, err)
	t.Cleanup(func() {
		if srv.IsRunning() {
			srv.Stop()
		}
	})
	return srv
}

// Start must not return before the listener accepts: a connection opened
// immediately afterwards has to succeed.
func TestStartRendezvous(t *testing.T) {
	srv := startServer(t, []int{3}, time.Minute)

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	response, err := wire.ReadResponse(bufio.NewReader(conn))
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, response.Status)
	assert.Equal(t, "0/3\r\n", response.Content)
}

func TestStartBindFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	manager, err := job.NewManager([]int{1})
	require.NoError(t, err)

	occupied := listener.Addr().(*net.TCPAddr).Port
	_, err = Start("127.0.0.1", occupied, manager, 0)
	assert.Error(t, err)
}

// The reserved shutdown path is answered 404 like any other non-empty path.
func TestPokePathIsNotFound(t *testing.T) {
	srv := startServer(t, []int{3}, time.Minute)

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /server HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	response, err := wire.ReadResponse(bufio.NewReader(conn))
	require.NoError(t, err)
	assert.Equal(t, wire.StatusNotFound, response.Status)
	assert.True(t, srv.IsRunning(), "an external poke must not stop the server")
}

func TestStopIsIdempotent(t *testing.T) {
	srv := startServer(t, []int{3}, time.Minute)

	srv.Stop()
	assert.False(t, srv.IsRunning())
	assert.NotPanics(t, func() { srv.Stop() })

	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Stop")
	}
}

// A connection that dies mid-request must not take the server down.
func TestClientDisconnectIsNonFatal(t *testing.T) {
	srv := startServer(t, []int{3}, time.Minute)

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	_, err = conn.Write([]byte("POST /0 HTTP/1.1\r\nContent-Length: 100\r\n\r\nshort"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// The server is still serving afterwards
	assert.Eventually(t, func() bool {
		probe, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
		if err != nil {
			return false
		}
		defer probe.Close()
		if _, err := probe.Write([]byte("GET / HTTP/1.1\r\n\r\n")); err != nil {
			return false
		}
		response, err := wire.ReadResponse(bufio.NewReader(probe))
		return err == nil && response.Status == wire.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
}

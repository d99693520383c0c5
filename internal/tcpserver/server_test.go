// file: internal/tcpserver/server_test.go
package tcpserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dkoosis/tokenizesrv/internal/handler"
	"github.com/dkoosis/tokenizesrv/internal/tokenizer"
	"github.com/dkoosis/tokenizesrv/internal/wire"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *handler.Handler {
	t.Helper()
	codec, err := wire.NewCodec(true, nil)
	require.NoError(t, err)
	return handler.New(codec, tokenizer.NewDefaultRegistry(), nil)
}

func waitForAddr(t *testing.T, s *Server) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != nil {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server never bound a listener")
	return nil
}

func TestServer_AcceptsAndHandlesOneConnection(t *testing.T) {
	s := New("tcp", "127.0.0.1:0", newTestHandler(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	addr := waitForAddr(t, s)
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	req := []byte(`[1,{"version":"v1.1","id":"c1","buf_type":"polyndrom","buf_name":"n","buf_body":"abba","additional_info":""}]` + "\n")
	_, err = conn.Write(req)
	require.NoError(t, err)

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), `"return_code":0`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_ShutdownClosesOpenSessions(t *testing.T) {
	s := New("tcp", "127.0.0.1:0", newTestHandler(t), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	addr := waitForAddr(t, s)
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	buf := make([]byte, 16)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	require.Error(t, err)
}

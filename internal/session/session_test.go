// file: internal/session/session_test.go
package session

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

func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	codec, err := wire.NewCodec(true, nil)
	require.NoError(t, err)
	h := handler.New(codec, tokenizer.NewDefaultRegistry(), nil)

	server, client := net.Pipe()
	s := New(server, h, nil)
	return s, client
}

func TestSession_HappyPathRoundTrip(t *testing.T) {
	s, client := newTestSession(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go s.Run(ctx)

	req := []byte(`[1,{"version":"v1.1","id":"c1","buf_type":"polyndrom","buf_name":"n","buf_body":"abba","additional_info":""}]` + "\n")
	_, err := client.Write(req)
	require.NoError(t, err)

	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), `"return_code":0`)
	require.Equal(t, byte('\n'), buf[n-1])
}

func TestSession_PartialThenCompleteAcrossTwoWrites(t *testing.T) {
	s, client := newTestSession(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go s.Run(ctx)

	full := []byte(`[1,{"version":"v1.1","id":"c1","buf_type":"polyndrom","buf_name":"n","buf_body":"abba","additional_info":""}]` + "\n")
	half := len(full) / 2

	_, err := client.Write(full[:half])
	require.NoError(t, err)

	// Give the session a moment to observe the partial read and loop back
	// to Reading before sending the rest.
	time.Sleep(20 * time.Millisecond)

	_, err = client.Write(full[half:])
	require.NoError(t, err)

	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), `"return_code":0`)
}

func TestSession_ClosesOnClientEOF(t *testing.T) {
	s, client := newTestSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	client.Close()

	select {
	case <-done:
		require.Equal(t, StateClosed, s.State())
	case <-time.After(time.Second):
		t.Fatal("session did not close after client EOF")
	}
}

// file: internal/handler/handler_test.go
package handler

import (
	"testing"

	"github.com/dkoosis/tokenizesrv/internal/sessionerr"
	"github.com/dkoosis/tokenizesrv/internal/tokenizer"
	"github.com/dkoosis/tokenizesrv/internal/wire"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	codec, err := wire.NewCodec(true, nil)
	require.NoError(t, err)
	return New(codec, tokenizer.NewDefaultRegistry(), nil)
}

func TestHandle_HappyPolyndromPath(t *testing.T) {
	h := newTestHandler(t)
	req := []byte(`[7,{"version":"v1.1","id":"c1","buf_type":"polyndrom","buf_name":"n","buf_body":"abba racecar\nnope","additional_info":""}]` + "\n")

	var resp []byte
	ignore, err := h.Handle(req, &resp)
	require.NoError(t, err)
	require.Zero(t, ignore)
	require.Contains(t, string(resp), `"return_code":0`)
	require.Contains(t, string(resp), `"Label":[[1,1,4],[1,6,7]]`)
	require.True(t, resp[len(resp)-1] == '\n')
}

func TestHandle_UnknownBufType(t *testing.T) {
	h := newTestHandler(t)
	req := []byte(`[1,{"version":"v1.1","id":"x","buf_type":"klingon","buf_name":"a","buf_body":"","additional_info":""}]` + "\n")

	var resp []byte
	_, err := h.Handle(req, &resp)
	require.NoError(t, err)
	require.Contains(t, string(resp), "klingon")
	require.Contains(t, string(resp), `"tokens":{}`)
	require.NotContains(t, string(resp), `"return_code":0`)
}

func TestHandle_MalformedJSON(t *testing.T) {
	h := newTestHandler(t)
	req := []byte("not json\n")

	var resp []byte
	_, err := h.Handle(req, &resp)
	require.NoError(t, err)
	require.True(t, resp[0] == '[' && resp[1] == '0') // FailureResponse with nil req echoes msg_num 0
	require.Contains(t, string(resp), `"return_code":1`)
}

func TestHandle_StaleCollapse(t *testing.T) {
	h := newTestHandler(t)
	r1 := `[1,{"version":"v1.1","id":"a","buf_type":"polyndrom","buf_name":"n","buf_body":"","additional_info":""}]`
	r2 := `[2,{"version":"v1.1","id":"b","buf_type":"polyndrom","buf_name":"n","buf_body":"","additional_info":""}]`
	r3 := `[3,{"version":"v1.1","id":"c","buf_type":"polyndrom","buf_name":"n","buf_body":"","additional_info":""}]`
	req := []byte(r1 + "\n" + r2 + "\n" + r3 + "\n")

	var resp []byte
	ignore, err := h.Handle(req, &resp)
	require.NoError(t, err)
	require.Zero(t, ignore)
	require.Contains(t, string(resp), `"id":"c"`)
	require.NotContains(t, string(resp), `"id":"a"`)
	require.NotContains(t, string(resp), `"id":"b"`)

	count := 0
	for _, b := range resp {
		if b == '\n' {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestHandle_PartialRead(t *testing.T) {
	h := newTestHandler(t)
	full := `[1,{"version":"v1.1","id":"a","buf_type":"polyndrom","buf_name":"n","buf_body":"abba","additional_info":""}]` + "\n"

	first := []byte(full[:len(full)/2])
	var resp []byte
	ignore, err := h.Handle(first, &resp)
	require.True(t, sessionerr.IsPartialData(err))
	require.Zero(t, ignore)
	require.Empty(t, resp)

	complete := append(first, []byte(full[len(full)/2:])...)
	ignore, err = h.Handle(complete, &resp)
	require.NoError(t, err)
	require.Zero(t, ignore)
	require.Contains(t, string(resp), `"return_code":0`)
}

func TestHandle_VersionMismatchID(t *testing.T) {
	h := newTestHandler(t)
	req := []byte(`[1,{"version":"v1","id":"not-an-integer","buf_type":"cpp","buf_name":"n","buf_body":"","additional_info":""}]` + "\n")

	var resp []byte
	_, err := h.Handle(req, &resp)
	require.NoError(t, err)
	require.Contains(t, string(resp), `"return_code":1`)
}

func TestHandle_TrailingPartialMessageWithStalePrefix(t *testing.T) {
	h := newTestHandler(t)
	r1 := `[1,{"version":"v1.1","id":"a","buf_type":"polyndrom","buf_name":"n","buf_body":"","additional_info":""}]`
	req := []byte(r1 + "\n" + `[2,{"version":"v1.1"`) // trailing partial, no closing delimiter

	var resp []byte
	ignore, err := h.Handle(req, &resp)
	require.True(t, sessionerr.IsPartialData(err))
	require.Equal(t, len(r1)+1, ignore)
	require.Empty(t, resp)
}

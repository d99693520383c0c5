// Package handler implements the pure request-handling function at the
// center of the protocol engine: it turns raw request bytes into
// response bytes plus framing advice, orchestrating the wire codec and
// the tokenizer registry. It never touches a socket.
package handler

// file: internal/handler/handler.go

import (
	"bytes"
	"fmt"

	"github.com/dkoosis/tokenizesrv/internal/logging"
	"github.com/dkoosis/tokenizesrv/internal/sessionerr"
	"github.com/dkoosis/tokenizesrv/internal/tokenizer"
	"github.com/dkoosis/tokenizesrv/internal/wire"
)

const delimiter = '\n'

// Handler is the single place where framing policy lives. It holds no
// per-connection state: the process builds one Handler at startup and
// every session shares it; no Handler is constructed per session.
type Handler struct {
	codec    *wire.Codec
	registry *tokenizer.Registry
	logger   logging.Logger
}

// New builds a Handler bound to codec and registry, both of which are
// process-global and immutable after startup; the returned Handler is
// safe to share between concurrently running sessions.
func New(codec *wire.Codec, registry *tokenizer.Registry, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Handler{codec: codec, registry: registry, logger: logger.WithField("component", "handler")}
}

// Handle implements spec.md §4.4's algorithm: split requestBytes at
// delimiters, keep only the latest complete message, decode it, dispatch
// to a tokenizer, and write exactly one response (followed by exactly
// one delimiter byte) into responseSink. ignoreLength reports how many
// leading bytes of requestBytes are stale and safe to discard from the
// session's request buffer; it is meaningful only when the returned
// error is sessionerr.ErrPartialData.
func (h *Handler) Handle(requestBytes []byte, responseSink *[]byte) (ignoreLength int, err error) {
	if len(requestBytes) == 0 {
		return 0, sessionerr.NewPartialData(0)
	}

	if requestBytes[len(requestBytes)-1] != delimiter {
		// Trailing partial message: stale prefix is everything through
		// and including the last delimiter found anywhere in the buffer.
		lastDelim := bytes.LastIndexByte(requestBytes, delimiter)
		if lastDelim < 0 {
			return 0, sessionerr.NewPartialData(0)
		}
		stale := lastDelim + 1
		return stale, sessionerr.NewPartialData(stale)
	}

	// Every byte is accounted for by complete, delimiter-terminated
	// messages. Split and keep only the last non-empty segment.
	segments := bytes.Split(requestBytes[:len(requestBytes)-1], []byte{delimiter})
	var latest []byte
	discarded := 0
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if latest != nil {
			discarded++
		}
		latest = seg
	}
	if discarded > 0 {
		h.logger.Warn("discarded stale requests in read burst", "count", discarded)
	}
	if latest == nil {
		// The buffer was entirely delimiters (e.g. "\n\n"); nothing to
		// handle, and nothing left to retain either.
		return len(requestBytes), sessionerr.NewPartialData(len(requestBytes))
	}

	req, decodeErr := h.codec.Decode(latest)
	if decodeErr != nil {
		resp := wire.FailureResponse(nil, sessionerr.Message(decodeErr))
		if encErr := h.encodeAndTerminate(resp, responseSink); encErr != nil {
			return 0, encErr
		}
		return 0, nil
	}

	tok, ok := h.registry.Get(req.BufType)
	if !ok {
		resp := wire.FailureResponse(req, sessionerr.NewUnknownTokenizer(req.BufType).Error())
		if encErr := h.encodeAndTerminate(resp, responseSink); encErr != nil {
			return 0, encErr
		}
		return 0, nil
	}

	tokens, tokErr := tok.Tokenize(req.BufType, req.BufBody, req.AdditionalInfo)
	var resp wire.ResponseMessage
	if tokErr != nil {
		resp = wire.FailureResponse(req, tokErr.Error())
	} else {
		resp = wire.SuccessResponse(req, groupTokens(tokens))
	}

	if encErr := h.encodeAndTerminate(resp, responseSink); encErr != nil {
		return 0, encErr
	}
	return 0, nil
}

func (h *Handler) encodeAndTerminate(resp wire.ResponseMessage, sink *[]byte) error {
	if err := h.codec.Encode(resp, sink); err != nil {
		// Serialization failure here is the handler's own logic error
		// (spec.md §4.4 step 6): the debug schema self-check caught an
		// outgoing message that never should have been built.
		return sessionerr.NewFatal(fmt.Sprintf("failed to encode response for msg_num=%d", resp.MsgNum), err)
	}
	*sink = append(*sink, delimiter)
	return nil
}

func groupTokens(tokens []tokenizer.Token) map[string][]wire.TokenLocation {
	grouped := make(map[string][]wire.TokenLocation)
	for _, t := range tokens {
		grouped[t.Group] = append(grouped[t.Group], wire.TokenLocation{
			Row: t.Row, Column: t.Column, Length: t.Length,
		})
	}
	return grouped
}

// Package sessionerr defines the closed taxonomy of session-level error
// kinds used by the protocol engine to decide whether a failure is
// recoverable framing noise, a per-request failure to report to the
// client, or a fatal condition that closes the connection.
package sessionerr

// file: internal/sessionerr/sessionerr.go

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel category markers. Every error the session/handler produces is
// marked with exactly one of these via errors.Mark, so callers branch on
// category identity (errors.Is) instead of string matching.
var (
	// ErrPartialData marks a framing error: the request buffer ends
	// mid-message and the session must read more before handling again.
	// It is the only category the session treats as recoverable.
	ErrPartialData = errors.New("partial data in request buffer")

	// ErrBadMessage marks a per-request failure: malformed JSON or a
	// schema violation. Reported to the client, connection stays open.
	ErrBadMessage = errors.New("bad message")

	// ErrUnknownTokenizer marks a per-request failure: no tokenizer is
	// registered for the requested buf_type.
	ErrUnknownTokenizer = errors.New("unknown tokenizer")

	// ErrTokenizerFailed marks a per-request failure surfaced by the
	// tokenizer itself (e.g. a parse error in the source buffer).
	ErrTokenizerFailed = errors.New("tokenizer failed")

	// ErrFatal marks a session-terminating condition: a socket error,
	// an empty response handed to the writer, or (in debug builds) an
	// outgoing message that fails its own schema self-check.
	ErrFatal = errors.New("fatal session error")
)

// IsPartialData reports whether err is (or wraps) the PartialData category.
func IsPartialData(err error) bool {
	return errors.Is(err, ErrPartialData)
}

// IsFatal reports whether err is (or wraps) the Fatal category.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// NewPartialData builds a PartialData condition carrying
// how many stale bytes at the front of the request buffer should be
// discarded before the next read.
func NewPartialData(ignoreLength int) error {
	err := errors.Newf("partial data, ignore_length=%d", ignoreLength)
	err = errors.Mark(err, ErrPartialData)
	return errors.WithDetail(err, fmt.Sprintf("ignore_length:%d", ignoreLength))
}

// NewBadMessage wraps cause as a BadMessage condition with a human-readable
// explanation intended for the response's error_message field.
func NewBadMessage(reason string, cause error) error {
	var err error
	if cause == nil {
		err = errors.Newf("%s", reason)
	} else {
		err = errors.Wrapf(cause, "%s", reason)
	}
	return errors.Mark(err, ErrBadMessage)
}

// NewUnknownTokenizer wraps a "no tokenizer for buf_type" condition.
func NewUnknownTokenizer(bufType string) error {
	err := errors.Newf("couldn't get tokenizer for buffer type: %s", bufType)
	return errors.Mark(err, ErrUnknownTokenizer)
}

// NewTokenizerFailed wraps a tokenizer-reported failure string.
func NewTokenizerFailed(reason string) error {
	err := errors.Newf("%s", reason)
	return errors.Mark(err, ErrTokenizerFailed)
}

// NewFatal wraps cause (always non-nil in practice) as a session-terminating
// condition.
func NewFatal(reason string, cause error) error {
	var err error
	if cause == nil {
		err = errors.Newf("%s", reason)
	} else {
		err = errors.Wrapf(cause, "%s", reason)
	}
	return errors.Mark(err, ErrFatal)
}

// Message returns the text to surface to the client in a response's
// error_message field: err.Error(), which for a wrapped error is the
// reason followed by the wrapped cause's text (for a decode failure,
// "bad message: " plus the JSON parser's or schema validator's message).
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Package tokenizer defines the pluggable tokenizer backend contract and
// a process-global registry of tokenizer constructors keyed by buf_type.
package tokenizer

// file: internal/tokenizer/tokenizer.go

// Token is one (group, row, column, length) tuple produced by a
// tokenizer, 1-indexed on row and column.
type Token struct {
	Group  string
	Row    int
	Column int
	Length int
}

// Tokenizer turns source text into an ordered list of tokens. A
// tokenizer may fail with a descriptive error; that failure is reported
// to the client as a non-zero return_code, never as a session-ending
// condition.
type Tokenizer interface {
	Tokenize(bufType, bufBody, additionalInfo string) ([]Token, error)
}

// Constructor builds a fresh Tokenizer instance. Registered per buf_type
// so a tokenizer that holds per-invocation state (e.g. a temp file) gets
// a clean instance each time it is looked up.
type Constructor func() Tokenizer

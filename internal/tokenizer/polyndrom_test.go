// file: internal/tokenizer/polyndrom_test.go
package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolyndromTokenizer_HappyPath(t *testing.T) {
	tok := NewPolyndromTokenizer()
	tokens, err := tok.Tokenize("polyndrom", "abba racecar\nnope", "")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, Token{Group: "Label", Row: 1, Column: 1, Length: 4}, tokens[0])
	require.Equal(t, Token{Group: "Label", Row: 1, Column: 6, Length: 7}, tokens[1])
}

func TestPolyndromTokenizer_NoPalindromes(t *testing.T) {
	tok := NewPolyndromTokenizer()
	tokens, err := tok.Tokenize("polyndrom", "hello world", "")
	require.NoError(t, err)
	require.Empty(t, tokens)
}

func TestPolyndromTokenizer_EmptyBuffer(t *testing.T) {
	tok := NewPolyndromTokenizer()
	tokens, err := tok.Tokenize("polyndrom", "", "")
	require.NoError(t, err)
	require.Empty(t, tokens)
}

func TestRegistry_LookupAndMiss(t *testing.T) {
	reg := NewDefaultRegistry()

	tok, ok := reg.Get(PolyndromBufType)
	require.True(t, ok)
	require.NotNil(t, tok)

	_, ok = reg.Get("klingon")
	require.False(t, ok)
}

func TestRegistry_FreshInstancePerLookup(t *testing.T) {
	reg := NewRegistry()
	type counting struct{ n int }
	calls := &counting{}
	reg.Register("counter", func() Tokenizer {
		calls.n++
		return NewPolyndromTokenizer()
	})

	_, _ = reg.Get("counter")
	_, _ = reg.Get("counter")
	require.Equal(t, 2, calls.n)
}

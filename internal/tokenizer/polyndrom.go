// file: internal/tokenizer/polyndrom.go
package tokenizer

import (
	"regexp"
	"strings"
)

// PolyndromBufType is the buf_type routing key for the bundled
// palindrome-word tagger.
const PolyndromBufType = "polyndrom"

var wordPattern = regexp.MustCompile(`\w+`)

// PolyndromTokenizer tags every palindrome word in the buffer with the
// "Label" group. It is the demonstration tokenizer named in spec.md
// §4.3 ("bundled tokenizer capabilities (informative)").
type PolyndromTokenizer struct{}

// NewPolyndromTokenizer returns a PolyndromTokenizer. It holds no
// per-invocation state, but a fresh value is still returned per lookup
// to keep the Constructor contract uniform with tokenizers that do.
func NewPolyndromTokenizer() *PolyndromTokenizer {
	return &PolyndromTokenizer{}
}

// Tokenize never fails: every input buffer, including the empty string,
// produces a (possibly empty) token list.
func (t *PolyndromTokenizer) Tokenize(_ string, bufBody string, _ string) ([]Token, error) {
	var tokens []Token
	for row, line := range strings.Split(bufBody, "\n") {
		for _, loc := range wordPattern.FindAllStringIndex(line, -1) {
			word := line[loc[0]:loc[1]]
			if isPalindrome(word) {
				tokens = append(tokens, Token{
					Group:  "Label",
					Row:    row + 1,
					Column: loc[0] + 1,
					Length: len(word),
				})
			}
		}
	}
	return tokens, nil
}

func isPalindrome(s string) bool {
	n := len(s)
	for i := 0; i < n/2; i++ {
		if s[i] != s[n-1-i] {
			return false
		}
	}
	return true
}

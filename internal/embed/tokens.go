package embed

import (
	"errors"
	"fmt"

	"github.com/samcharles93/stratum/internal/engine"
)

// Initial token capacity is one token per input byte plus slack for
// special tokens, floored so short strings don't reallocate.
const (
	tokenSlack  = 8
	minTokenCap = 16
)

// tokenize converts text into a token sequence. The buffer starts at the
// byte-length estimate; when the vocabulary reports overflow with an
// exact required capacity, the buffer is regrown to that size and the
// call retried exactly once. A second failure is hard: unbounded regrow
// loops on malformed input are not acceptable.
func tokenize(v engine.Vocab, text string, addSpecial, parseSpecial bool) ([]engine.Token, error) {
	capacity := len(text) + tokenSlack
	if capacity < minTokenCap {
		capacity = minTokenCap
	}

	buf := make([]engine.Token, capacity)
	n, err := v.Tokenize(text, buf, addSpecial, parseSpecial)

	var overflow *engine.TokenOverflowError
	if errors.As(err, &overflow) {
		if overflow.Required <= 0 {
			return nil, ErrTokenBufferAlloc
		}
		buf = make([]engine.Token, overflow.Required)
		n, err = v.Tokenize(text, buf, addSpecial, parseSpecial)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenization, err)
	}
	if n <= 0 {
		return nil, ErrTokenization
	}

	return buf[:n], nil
}

package embed

import (
	"errors"
	"strings"
	"testing"
)

func TestTokenizeCapacityEstimate(t *testing.T) {
	t.Parallel()

	v := &fakeVocab{}
	text := strings.Repeat("a", 100)
	tokens, err := tokenize(v, text, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 100 {
		t.Fatalf("token count: got %d want 100", len(tokens))
	}
	if v.lastCap != 108 {
		t.Fatalf("initial capacity: got %d want len(text)+8", v.lastCap)
	}
	if v.calls != 1 {
		t.Fatalf("calls: got %d want 1", v.calls)
	}
}

func TestTokenizeCapacityFloor(t *testing.T) {
	t.Parallel()

	v := &fakeVocab{}
	if _, err := tokenize(v, "ab", false, false); err != nil {
		t.Fatal(err)
	}
	if v.lastCap != 16 {
		t.Fatalf("short input capacity: got %d want 16", v.lastCap)
	}
}

func TestTokenizeRetriesOnceOnOverflow(t *testing.T) {
	t.Parallel()

	v := &fakeVocab{firstCallShort: true, required: 300}
	text := strings.Repeat("b", 100)
	// The fake can't actually produce 300 tokens for 100 bytes, but the
	// retry must use the reported capacity exactly.
	tokens, err := tokenize(v, text, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if v.calls != 2 {
		t.Fatalf("calls: got %d want 2", v.calls)
	}
	if v.lastCap != 300 {
		t.Fatalf("retry capacity: got %d want the exact reported requirement 300", v.lastCap)
	}
	if len(tokens) != 100 {
		t.Fatalf("token count: got %d want 100", len(tokens))
	}
}

func TestTokenizeSecondOverflowIsHardError(t *testing.T) {
	t.Parallel()

	v := &fakeVocab{alwaysShort: true, required: 64}
	_, err := tokenize(v, "hello", false, false)
	if !errors.Is(err, ErrTokenization) {
		t.Fatalf("got %v want ErrTokenization", err)
	}
	if v.calls != 2 {
		t.Fatalf("calls: got %d want exactly 2 (no further retries)", v.calls)
	}
}

func TestTokenizeInvalidCapacityHint(t *testing.T) {
	t.Parallel()

	v := &fakeVocab{firstCallShort: true, required: -5}
	_, err := tokenize(v, "hello", false, false)
	if !errors.Is(err, ErrTokenBufferAlloc) {
		t.Fatalf("got %v want ErrTokenBufferAlloc", err)
	}
}

func TestTokenizeEmptyResult(t *testing.T) {
	t.Parallel()

	v := &fakeVocab{emptyResult: true}
	_, err := tokenize(v, "hello", false, false)
	if !errors.Is(err, ErrTokenization) {
		t.Fatalf("got %v want ErrTokenization", err)
	}
}

// Package norm applies output normalization to raw embedding vectors.
package norm

import (
	"fmt"
	"math"
)

// Mode selects the normalization applied to an extracted embedding.
// The numeric values match the source engine's convention: 0 is a plain
// copy, 2 is L2. No other modes exist.
type Mode int32

const (
	None Mode = 0
	L2   Mode = 2
)

// Valid reports whether m is a defined mode. Callers must reject
// anything else before extraction starts; Normalize assumes a valid mode.
func (m Mode) Valid() bool {
	return m == None || m == L2
}

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case L2:
		return "l2"
	default:
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
}

// Parse converts a config string into a Mode.
func Parse(s string) (Mode, error) {
	switch s {
	case "", "none":
		return None, nil
	case "l2":
		return L2, nil
	default:
		return None, fmt.Errorf("unknown normalization mode %q", s)
	}
}

// Normalize writes src through mode m into dst. dst must hold at least
// len(src) elements; an empty src is a no-op, not an error.
func Normalize(m Mode, dst, src []float32) {
	if len(src) == 0 {
		return
	}
	if m != L2 {
		copy(dst, src)
		return
	}

	// Accumulate in float64: single-precision accumulation drifts over
	// large dimensions.
	var sum float64
	for _, v := range src {
		sum += float64(v) * float64(v)
	}

	norm := math.Sqrt(sum)
	if norm <= 0 {
		// Degenerate all-zero vector: identity copy instead of dividing
		// by zero.
		copy(dst, src)
		return
	}

	inv := float32(1 / norm)
	for i, v := range src {
		dst[i] = v * inv
	}
}

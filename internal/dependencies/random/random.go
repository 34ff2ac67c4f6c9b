// Package random wraps the randomness the simulated session needs: join
// codes and injected disconnect failures
package random

import "math/rand/v2"

// Random can be replaced with a scripted source in tests
type Random interface {
	// Intn returns a value in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String draws length characters from alphabet
	String(length int, alphabet string) string
}

// Chance reports whether an event with the given percentage probability
// happens. Percentages outside 1..99 never consult r.
func Chance(r Random, percent int) bool {
	switch {
	case percent <= 0:
		return false
	case percent >= 100:
		return true
	default:
		return r.Intn(100) < percent
	}
}

// Runtime draws from the runtime's ChaCha8 generator, which is seeded per
// process and safe for concurrent use
type Runtime struct{}

var _ Random = Runtime{}

// New returns the runtime generator
func New() Random {
	return Runtime{}
}

func (Runtime) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

func (r Runtime) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(out)
}

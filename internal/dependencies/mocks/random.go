package mocks

import (
	"sync"

	"github.com/mcoot/hostguard/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued results are returned in order; once a queue runs dry the
// fallback value is returned instead.
type MockRandom struct {
	mu sync.Mutex

	intn         []int
	FallbackIntn int

	strings []string
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom whose Intn falls back to n-1,
// so percentage checks fail unless a result is queued.
func NewMockRandom() *MockRandom {
	return &MockRandom{FallbackIntn: -1}
}

// Intn returns the next queued result, or the fallback
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.intn) == 0 {
		if r.FallbackIntn < 0 {
			return n - 1
		}
		return r.FallbackIntn
	}
	result := r.intn[0]
	r.intn = r.intn[1:]
	return result
}

// String returns the next queued result, or a string of zeroes
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.strings) == 0 {
		if len(alphabet) == 0 {
			return ""
		}
		result := make([]byte, length)
		for i := range result {
			result[i] = alphabet[0]
		}
		return string(result)
	}
	result := r.strings[0]
	r.strings = r.strings[1:]
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intn = append(r.intn, values...)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strings = append(r.strings, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intn = nil
	r.strings = nil
}

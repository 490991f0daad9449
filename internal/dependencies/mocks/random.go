package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/battleship-server/internal/dependencies/random"
)

// MockRandom returns queued strings, then falls back to a counter so that
// unqueued tokens stay unique.
type MockRandom struct {
	mu      sync.Mutex
	strings []string
	counter int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.strings) > 0 {
		s := r.strings[0]
		r.strings = r.strings[1:]
		return s
	}
	r.counter++
	s := fmt.Sprintf("mock%0*d", max(length-4, 0), r.counter)
	if len(s) > length {
		s = s[len(s)-length:]
	}
	return s
}

// QueueString adds values to be returned by String, in order
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	r.strings = append(r.strings, values...)
	r.mu.Unlock()
}

package broker

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Mock records calls while enabled. The zero value is disabled and ready to use.
type Mock[T any] struct {
	enabled atomic.Bool

	mu    sync.Mutex
	calls []T
}

func (m *Mock[T]) enable(on bool) { m.enabled.Store(on) }

func (m *Mock[T]) record(v T) {
	if !m.enabled.Load() {
		return
	}

	m.mu.Lock()
	m.calls = append(m.calls, v)
	m.mu.Unlock()
}

// Enabled reports whether calls are being recorded.
func (m *Mock[T]) Enabled() bool { return m.enabled.Load() }

// Calls returns recorded calls, oldest first.
func (m *Mock[T]) Calls() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.calls)
}

// CallCount returns the number of recorded calls.
func (m *Mock[T]) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// Last returns the most recent call.
func (m *Mock[T]) Last() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if len(m.calls) == 0 {
		return zero, false
	}

	return m.calls[len(m.calls)-1], true
}

// Reset forgets recorded calls.
func (m *Mock[T]) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

package limiter

import "sync"

// MockLimiter is a test double for the Limiter interface
type MockLimiter struct {
	mu sync.Mutex

	// AllowResult is what every Allow call returns
	AllowResult bool

	// Track method calls for verification in tests
	AllowCalls  []string
	CloseCalled bool

	CloseError error
}

// NewMockLimiter creates a mock limiter that allows (true) or denies (false) everything
func NewMockLimiter(allowResult bool) *MockLimiter {
	return &MockLimiter{
		AllowResult: allowResult,
		AllowCalls:  []string{},
	}
}

// Allow implements the Limiter interface
func (m *MockLimiter) Allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AllowCalls = append(m.AllowCalls, key)
	return m.AllowResult
}

// Calls returns a copy of the keys Allow was called with
func (m *MockLimiter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.AllowCalls...)
}

// Close implements the Limiter interface
func (m *MockLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CloseCalled = true
	return m.CloseError
}

package mocks

import (
	"context"
	"sync"
	"time"
)

// MemoryHeartbeat stores the worker liveness marker in memory. It satisfies
// both the heartbeat writer used by the worker and the reader used by health
// checks. Expiry is evaluated against Now, which tests may replace.
type MemoryHeartbeat struct {
	mu      sync.Mutex
	at      time.Time
	expires time.Time
	set     bool

	// Now returns the current time; time.Now when nil.
	Now func() time.Time
	// Err is returned by every call when set.
	Err error
	// Writes counts successful WriteHeartbeat calls.
	Writes int
}

func (h *MemoryHeartbeat) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// WriteHeartbeat records at with a ttl.
func (h *MemoryHeartbeat) WriteHeartbeat(_ context.Context, at time.Time, ttl time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return h.Err
	}
	h.at = at
	h.expires = h.now().Add(ttl)
	h.set = true
	h.Writes++
	return nil
}

// ReadHeartbeat returns the marker, or ok=false when absent or expired.
func (h *MemoryHeartbeat) ReadHeartbeat(context.Context) (time.Time, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return time.Time{}, false, h.Err
	}
	if !h.set || !h.now().Before(h.expires) {
		return time.Time{}, false, nil
	}
	return h.at, true, nil
}

// MockRestarter records restart requests.
type MockRestarter struct {
	// RestartFn allows test cases to mock the Restart behavior
	RestartFn func(ctx context.Context, process string) error

	// Default response value
	Err error

	RestartCalls struct {
		mu        sync.Mutex
		Count     int
		Processes []string
	}
}

// Restart records the call and returns RestartFn's result or Err.
func (m *MockRestarter) Restart(ctx context.Context, process string) error {
	m.RestartCalls.mu.Lock()
	m.RestartCalls.Count++
	m.RestartCalls.Processes = append(m.RestartCalls.Processes, process)
	m.RestartCalls.mu.Unlock()

	if m.RestartFn != nil {
		return m.RestartFn(ctx, process)
	}
	return m.Err
}

// CallCount returns the number of Restart calls.
func (m *MockRestarter) CallCount() int {
	m.RestartCalls.mu.Lock()
	defer m.RestartCalls.mu.Unlock()
	return m.RestartCalls.Count
}

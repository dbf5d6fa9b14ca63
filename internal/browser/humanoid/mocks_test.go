// FILE: ./internal/browser/humanoid/mocks_test.go
package humanoid

import (
	"context"
	"sync"
	"time"
)

// mockExecutor records keys and sleeps. Overrides replace the default behavior.
type mockExecutor struct {
	mu             sync.Mutex
	sentKeys       []string
	sleepDurations []time.Duration
	returnErr      error
	failOnCall     int
	callCount      int

	MockSleep    func(ctx context.Context, d time.Duration) error
	MockSendKeys func(ctx context.Context, keys string) error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{}
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if m.MockSleep != nil {
		return m.MockSleep(ctx, d)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleepDurations = append(m.sleepDurations, d)
	return nil
}

func (m *mockExecutor) SendKeys(ctx context.Context, keys string) error {
	if m.MockSendKeys != nil {
		return m.MockSendKeys(ctx, keys)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.returnErr != nil && (m.failOnCall == 0 || m.callCount >= m.failOnCall) {
		return m.returnErr
	}
	m.sentKeys = append(m.sentKeys, keys)
	return nil
}

func (m *mockExecutor) typed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s string
	for _, k := range m.sentKeys {
		s += k
	}
	return s
}

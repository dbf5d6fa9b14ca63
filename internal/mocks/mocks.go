// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// -- Sheet Store Mock --

// MockSheetStore mocks the sheet.Store interface.
type MockSheetStore struct {
	mock.Mock
}

// ReadRange provides a mock function for reading an A1 range.
func (m *MockSheetStore) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	args := m.Called(ctx, a1)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]string), args.Error(1)
}

// WriteCell provides a mock function for writing a single cell.
func (m *MockSheetStore) WriteCell(ctx context.Context, a1, value string) error {
	args := m.Called(ctx, a1, value)
	return args.Error(0)
}

// -- Prompter Mock --

// MockPrompter mocks the prompt.Prompter interface.
type MockPrompter struct {
	mock.Mock
}

func (m *MockPrompter) Ask(ctx context.Context, question string) (string, error) {
	args := m.Called(ctx, question)
	return args.String(0), args.Error(1)
}

func (m *MockPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	args := m.Called(ctx, question)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrompter) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- Scripted Prompter --

// ScriptedPrompter answers questions from a fixed list, in order. Once the
// list is exhausted it returns Fallback, or blocks until ctx is done when
// Block is set.
type ScriptedPrompter struct {
	mu       sync.Mutex
	Answers  []string
	Fallback string
	Block    bool
	Asked    []string
}

func (s *ScriptedPrompter) Ask(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	s.Asked = append(s.Asked, question)
	if len(s.Answers) > 0 {
		answer := s.Answers[0]
		s.Answers = s.Answers[1:]
		s.mu.Unlock()
		return answer, nil
	}
	block := s.Block
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.Fallback, nil
}

func (s *ScriptedPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := s.Ask(ctx, question)
	return answer == "y" || answer == "Y", err
}

func (s *ScriptedPrompter) Close() error { return nil }

// Questions returns a copy of every question asked so far.
func (s *ScriptedPrompter) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Asked...)
}

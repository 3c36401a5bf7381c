package services

import (
	"io"
	"strings"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
)

// MockChangeNotifier is a mock for the ChangeNotifier interface
type MockChangeNotifier struct {
	mock.Mock
}

func (m *MockChangeNotifier) Broadcast(messageType string, data interface{}) {
	m.Called(messageType, data)
}

// memorySeed is a SeedSource backed by a string. Content can be swapped
// between loads and Open calls are counted.
type memorySeed struct {
	content atomic.Value
	opens   atomic.Int64
	err     error
}

func newMemorySeed(content string) *memorySeed {
	s := &memorySeed{}
	s.content.Store(content)
	return s
}

func (s *memorySeed) set(content string) { s.content.Store(content) }

func (s *memorySeed) Open() (io.ReadCloser, error) {
	s.opens.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.content.Load().(string))), nil
}

func (s *memorySeed) String() string { return "memory" }

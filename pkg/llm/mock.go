package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient returns a fixed list of canned responses in order, one per
// call, and errors once the list is exhausted. Used by end-to-end tests to drive the loops without a real LLM
// transport.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	index     int
}

// NewMockClient creates a MockClient. responses are returned in order, one
// per Generate/GenerateWithImage call; once exhausted, calls return an
// error so a test can detect an unexpectedly long run.
func NewMockClient(responses []string) *MockClient {
	return &MockClient{responses: responses}
}

// SetResponses replaces the canned response queue and resets the cursor.
func (m *MockClient) SetResponses(responses []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.index = 0
}

func (m *MockClient) Generate(ctx context.Context, system, user string) (string, error) {
	return m.next()
}

func (m *MockClient) GenerateWithImage(ctx context.Context, system, user, imageBase64, mimeType string) (string, error) {
	return m.next()
}

func (m *MockClient) next() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index >= len(m.responses) {
		return "", fmt.Errorf("mock llm: no more canned responses (called %d times)", m.index+1)
	}
	resp := m.responses[m.index]
	m.index++
	return resp, nil
}

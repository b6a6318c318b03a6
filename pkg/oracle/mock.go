package oracle

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a controllable Client for tests. It replays scripted
// responses in order and records every request it receives.
type MockClient struct {
	mu            sync.Mutex
	responses     []Response
	responseIndex int
	errors        []error
	errorIndex    int
	requests      []Request
	model         string

	// CompleteFunc, when set, overrides the scripted behavior entirely.
	CompleteFunc func(ctx context.Context, in Request) (Response, error)
}

// NewMockClient creates a mock client with predefined responses.
func NewMockClient(responses []Response, errors []error) *MockClient {
	return &MockClient{
		responses: responses,
		errors:    errors,
		model:     "mock-model",
	}
}

// NewMockClientWithContent is a shorthand that scripts plain text replies.
func NewMockClientWithContent(contents ...string) *MockClient {
	responses := make([]Response, len(contents))
	for i, c := range contents {
		responses[i] = Response{Content: c, StopReason: "end_turn"}
	}
	return NewMockClient(responses, nil)
}

// Complete returns the next predefined response or error.
func (m *MockClient) Complete(ctx context.Context, in Request) (Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, in)
	override := m.CompleteFunc
	m.mu.Unlock()

	if override != nil {
		return override(ctx, in)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return Response{}, err
	}

	if m.responseIndex >= len(m.responses) {
		return Response{}, fmt.Errorf("mock client: no more responses (served %d)", m.responseIndex)
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// ModelName returns the mock model name.
func (m *MockClient) ModelName() string {
	return m.model
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many Complete calls were made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or false when none were made.
func (m *MockClient) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}

package api

import (
	"context"
	"sync"

	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/stream"
)

// StreamCall records one StreamChat or Chat invocation
type StreamCall struct {
	Message   string
	SessionID string
}

// MockClient is a mock implementation of ClientInterface for testing
type MockClient struct {
	// Mock return values
	StreamEvents     []stream.Event
	StreamErr        error
	StreamFunc       func(ctx context.Context, message, sessionID string) (stream.Source, error)
	ChatReplyVal     *models.ChatReply
	ChatErr          error
	HealthVal        *models.HealthStatus
	HealthErr        error
	KnowledgeBaseVal *models.KnowledgeBaseStatus
	KnowledgeBaseErr error
	ReindexVal       *models.ReindexResult
	ReindexErr       error
	BaseURLVal       string

	// Call counters/recorders
	mu            sync.Mutex
	StreamCalls   []StreamCall
	ChatCalls     []StreamCall
	ReindexCalled bool
	CloseCalled   bool
}

// Ensure MockClient implements ClientInterface
var _ ClientInterface = (*MockClient)(nil)

func (m *MockClient) StreamChat(ctx context.Context, message, sessionID string) (stream.Source, error) {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, StreamCall{Message: message, SessionID: sessionID})
	m.mu.Unlock()

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, message, sessionID)
	}
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	events := make([]stream.Event, len(m.StreamEvents))
	copy(events, m.StreamEvents)
	return NewReplaySource(events...), nil
}

func (m *MockClient) Chat(ctx context.Context, message, sessionID string) (*models.ChatReply, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, StreamCall{Message: message, SessionID: sessionID})
	m.mu.Unlock()
	return m.ChatReplyVal, m.ChatErr
}

func (m *MockClient) Health(ctx context.Context) (*models.HealthStatus, error) {
	return m.HealthVal, m.HealthErr
}

func (m *MockClient) KnowledgeBase(ctx context.Context) (*models.KnowledgeBaseStatus, error) {
	return m.KnowledgeBaseVal, m.KnowledgeBaseErr
}

func (m *MockClient) Reindex(ctx context.Context) (*models.ReindexResult, error) {
	m.mu.Lock()
	m.ReindexCalled = true
	m.mu.Unlock()
	return m.ReindexVal, m.ReindexErr
}

func (m *MockClient) BaseURL() string {
	if m.BaseURLVal == "" {
		return models.DefaultServerURL
	}
	return m.BaseURLVal
}

func (m *MockClient) Close() {
	m.mu.Lock()
	m.CloseCalled = true
	m.mu.Unlock()
}

// Calls returns a copy of the recorded StreamChat calls
func (m *MockClient) Calls() []StreamCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StreamCall, len(m.StreamCalls))
	copy(out, m.StreamCalls)
	return out
}

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is an in-memory Provider. Events are JSON-encoded Event
// values; the signature must equal Signature.
type MockProvider struct {
	Signature string

	OnCreateSession func(ctx context.Context, params SessionParams) (string, error)

	mu       sync.Mutex
	sessions []SessionParams
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Signature: "mock-signature"}
}

func (m *MockProvider) CreateSession(ctx context.Context, params SessionParams) (string, error) {
	m.mu.Lock()
	m.sessions = append(m.sessions, params)
	hook := m.OnCreateSession
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, params)
	}
	return "cs_mock_" + uuid.NewString()[:8], nil
}

func (m *MockProvider) ParseEvent(payload []byte, signature string) (*Event, error) {
	if signature != m.Signature {
		return nil, ErrInvalidSignature
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	return &evt, nil
}

// Sessions returns the session requests received so far.
func (m *MockProvider) Sessions() []SessionParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SessionParams(nil), m.sessions...)
}

var _ Provider = (*MockProvider)(nil)

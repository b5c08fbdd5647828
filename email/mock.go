package email

import (
	"context"
	"log/slog"
	"sync"
)

// MockProvider is a mock email provider for local development. It logs each
// message and keeps a copy.
type MockProvider struct {
	logger *slog.Logger
	mu     sync.Mutex
	sent   []Message
	// Fail, when set, is consulted before each send. A non-nil error fails it.
	Fail func(msg Message) error
}

// NewMockProvider creates a new mock email provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the email instead of sending it.
func (m *MockProvider) Send(_ context.Context, msg Message) error {
	if m.Fail != nil {
		if err := m.Fail(msg); err != nil {
			return err
		}
	}
	m.logger.Info("MOCK EMAIL",
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"body_length", len(msg.HTML))
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every message accepted so far.
func (m *MockProvider) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

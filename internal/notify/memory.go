package notify

import (
	"context"
	"sync"
)

// Memory keeps notifications in process. Fail, when set, is consulted before
// each write and its error returned as is.
type Memory struct {
	mu    sync.Mutex
	items []Notification

	Fail func(n Notification) error
}

func (m *Memory) CreateNotification(_ context.Context, n Notification) error {
	if m.Fail != nil {
		if err := m.Fail(n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, n)
	return nil
}

// Sent returns a copy of the stored notifications in write order.
func (m *Memory) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.items...)
}

// For returns the notifications addressed to userID.
func (m *Memory) For(userID int64) []Notification {
	var out []Notification
	for _, n := range m.Sent() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// Package session lets a handler wait for the next message of the same
// conversation.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
)

// ErrTimeout is returned when no message arrives in time.
var ErrTimeout = errors.New("session: timed out waiting for the next message")

type waiter struct {
	ch chan *event.Context
}

// Manager parks waiters per session key. Offer hands the next matching
// event to the oldest waiter.
type Manager struct {
	mu      sync.Mutex
	waiters map[string][]*waiter
}

func NewManager() *Manager {
	return &Manager{waiters: make(map[string][]*waiter)}
}

// Wait blocks until the next event with key arrives, timeout elapses or
// ctx is done. A non-positive timeout waits on ctx only.
func (m *Manager) Wait(ctx context.Context, key string, timeout time.Duration) (*event.Context, error) {
	w := &waiter{ch: make(chan *event.Context, 1)}
	m.mu.Lock()
	m.waiters[key] = append(m.waiters[key], w)
	m.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var cause error
	select {
	case ev := <-w.ch:
		return ev, nil
	case <-expired:
		cause = ErrTimeout
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if m.remove(key, w) {
		return nil, cause
	}
	// Offer won the race and already delivered.
	return <-w.ch, nil
}

// Offer delivers ev to the oldest waiter on its session key. It reports
// whether ev was consumed.
func (m *Manager) Offer(ev *event.Context) bool {
	key := ev.SessionKey()
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.waiters[key]
	if len(ws) == 0 {
		return false
	}
	w := ws[0]
	if len(ws) == 1 {
		delete(m.waiters, key)
	} else {
		m.waiters[key] = ws[1:]
	}
	w.ch <- ev
	return true
}

// Pending reports whether someone is waiting on key.
func (m *Manager) Pending(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters[key]) > 0
}

func (m *Manager) remove(key string, w *waiter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.waiters[key]
	for i, x := range ws {
		if x != w {
			continue
		}
		ws = append(ws[:i], ws[i+1:]...)
		if len(ws) == 0 {
			delete(m.waiters, key)
		} else {
			m.waiters[key] = ws
		}
		return true
	}
	return false
}

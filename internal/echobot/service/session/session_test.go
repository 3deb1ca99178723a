package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/event"
)

func TestWaitReceivesNextMessageOfSameSession(t *testing.T) {
	m := NewManager()
	first := event.New(event.MessageTypePrivate, 7, nil, "/guess", nil)
	key := first.SessionKey()

	got := make(chan *event.Context, 1)
	go func() {
		ev, err := m.Wait(context.Background(), key, time.Second)
		if err != nil {
			t.Errorf("Wait: %v", err)
		}
		got <- ev
	}()

	deadline := time.Now().Add(time.Second)
	for !m.Pending(key) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	other := event.New(event.MessageTypePrivate, 8, nil, "50", nil)
	if m.Offer(other) {
		t.Fatal("event from another user was consumed")
	}
	answer := event.New(event.MessageTypePrivate, 7, nil, "42", nil)
	if !m.Offer(answer) {
		t.Fatal("answer was not consumed")
	}
	if ev := <-got; ev != answer {
		t.Fatalf("waiter got %v", ev)
	}
	if m.Pending(key) || m.Offer(answer) {
		t.Error("waiter should be gone after delivery")
	}
}

func TestWaitTimeoutAndCancel(t *testing.T) {
	m := NewManager()
	if _, err := m.Wait(context.Background(), "user:1", 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Wait(ctx, "user:1", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if m.Pending("user:1") {
		t.Error("expired waiters must be removed")
	}
}

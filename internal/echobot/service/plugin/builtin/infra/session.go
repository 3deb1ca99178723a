// Package infra holds the built-in plugins that provide shared services to
// other plugins through the resource registry. Apart from session they never
// match events.
package infra

import (
	"context"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/session"
)

const SessionName = "session"

// Session hands messages to plugins parked on a conversation. It must be
// the first plugin in dispatch order so a waiting conversation sees the
// next message before any command plugin does.
type Session struct {
	plugin.Base
	mgr *session.Manager
}

func NewSession() *Session {
	return &Session{mgr: session.NewManager()}
}

func (s *Session) Meta() plugin.Metadata {
	return plugin.NewMetadata(SessionName, "Routes follow-up messages to plugins waiting on a conversation")
}

func (s *Session) Build(_ context.Context, b *plugin.AppBuilder) error {
	plugin.Insert(b.Resources(), s.mgr)
	return nil
}

func (s *Session) Matches(ev *event.Context) bool {
	return s.mgr.Pending(ev.SessionKey())
}

// Handle consumes the event when a waiter is still parked. A waiter that
// timed out between Matches and Handle leaves the event to the rest.
func (s *Session) Handle(_ context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	if s.mgr.Offer(ev) {
		return plugin.Blocked(), nil
	}
	return nil, nil
}

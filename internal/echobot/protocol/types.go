package protocol

import (
	"bytes"
	"fmt"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/pkg/utils/json"
)

// Metadata is the result of the metadata method.
type Metadata struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	Author      string        `json:"author,omitempty"`
	Commands    []CommandInfo `json:"commands"`
}

// CommandInfo describes one command an external plugin answers to.
type CommandInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
}

// MatchesParams are the params of the matches method.
type MatchesParams struct {
	Text        string `json:"text"`
	MessageType string `json:"message_type"`
	UserID      *int64 `json:"user_id,omitempty"`
	GroupID     *int64 `json:"group_id,omitempty"`
}

// MatchesResult is the result of the matches method.
type MatchesResult struct {
	Matches bool `json:"matches"`
}

// HandleParams are the params of the handle method.
type HandleParams struct {
	MessageType string `json:"message_type"`
	UserID      int64  `json:"user_id"`
	GroupID     *int64 `json:"group_id,omitempty"`
	Text        string `json:"text"`
	RawMessage  string `json:"raw_message"`
	SelfID      *int64 `json:"self_id,omitempty"`
}

// HandleResult is the result of the handle method.
type HandleResult struct {
	Handled bool           `json:"handled"`
	Block   bool           `json:"block"`
	Reply   *string        `json:"reply,omitempty"`
	Actions []event.Action `json:"actions"`
}

// Ignored is the "did nothing" result.
func Ignored() HandleResult {
	return HandleResult{Actions: []event.Action{}}
}

// Replied is a handled, blocking result carrying a text reply.
func Replied(text string) HandleResult {
	return HandleResult{Handled: true, Block: true, Reply: &text, Actions: []event.Action{}}
}

// MatchesParamsFor builds matches params from an event.
func MatchesParamsFor(ev *event.Context) MatchesParams {
	uid := ev.UserID
	return MatchesParams{
		Text:        ev.Text,
		MessageType: ev.MessageType,
		UserID:      &uid,
		GroupID:     ev.GroupID,
	}
}

// HandleParamsFor builds handle params from an event.
func HandleParamsFor(ev *event.Context) HandleParams {
	return HandleParams{
		MessageType: ev.MessageType,
		UserID:      ev.UserID,
		GroupID:     ev.GroupID,
		Text:        ev.Text,
		RawMessage:  ev.RawMessage,
		SelfID:      ev.SelfID,
	}
}

// LifecycleKind tags a LifecycleEvent.
type LifecycleKind string

const (
	LifecycleStartup    LifecycleKind = "startup"
	LifecycleShutdown   LifecycleKind = "shutdown"
	LifecycleBotConnect LifecycleKind = "bot_connect"
)

// LifecycleEvent is delivered to every plugin that defines lifecycle
// behavior. It encodes as "startup", "shutdown" or
// {"bot_connect":{"self_id":N}}.
type LifecycleEvent struct {
	Kind   LifecycleKind
	SelfID int64
}

var (
	Startup  = LifecycleEvent{Kind: LifecycleStartup}
	Shutdown = LifecycleEvent{Kind: LifecycleShutdown}
)

// BotConnect builds a bot-connect event.
func BotConnect(selfID int64) LifecycleEvent {
	return LifecycleEvent{Kind: LifecycleBotConnect, SelfID: selfID}
}

func (e LifecycleEvent) String() string {
	if e.Kind == LifecycleBotConnect {
		return fmt.Sprintf("bot_connect(%d)", e.SelfID)
	}
	return string(e.Kind)
}

type botConnectBody struct {
	SelfID int64 `json:"self_id"`
}

func (e LifecycleEvent) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case LifecycleStartup, LifecycleShutdown:
		return json.Marshal(string(e.Kind))
	case LifecycleBotConnect:
		return json.Marshal(map[string]botConnectBody{"bot_connect": {SelfID: e.SelfID}})
	default:
		return nil, fmt.Errorf("unknown lifecycle event %q", e.Kind)
	}
}

func (e *LifecycleEvent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch LifecycleKind(s) {
		case LifecycleStartup, LifecycleShutdown:
			*e = LifecycleEvent{Kind: LifecycleKind(s)}
			return nil
		}
		return fmt.Errorf("unknown lifecycle event %q", s)
	}

	var obj map[string]botConnectBody
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid lifecycle event: %w", err)
	}
	// "botconnect" is accepted for children that lowercase variant names.
	for _, key := range []string{"bot_connect", "botconnect"} {
		if body, ok := obj[key]; ok {
			*e = BotConnect(body.SelfID)
			return nil
		}
	}
	return fmt.Errorf("unknown lifecycle event %s", data)
}

// LifecycleParams are the params of the lifecycle method.
type LifecycleParams struct {
	Event LifecycleEvent `json:"event"`
}

// LifecycleResult is the result of the lifecycle method.
type LifecycleResult struct {
	OK bool `json:"ok"`
}

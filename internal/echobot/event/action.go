package event

import (
	"context"
	"fmt"
)

// ActionType tags an Action.
type ActionType string

const (
	ActionReply ActionType = "reply"
	ActionImage ActionType = "image"
	ActionSend  ActionType = "send"
)

// Action is a structured outbound effect produced by a plugin. Exactly the
// fields belonging to Type are meaningful:
//
//	{"type":"reply","text":"..."}
//	{"type":"image","url":"..."}
//	{"type":"send","target_type":"group","target_id":123,"message":"..."}
type Action struct {
	Type       ActionType `json:"type"`
	Text       string     `json:"text,omitempty"`
	URL        string     `json:"url,omitempty"`
	TargetType string     `json:"target_type,omitempty"`
	TargetID   int64      `json:"target_id,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// Reply builds a reply-text action.
func Reply(text string) Action {
	return Action{Type: ActionReply, Text: text}
}

// Image builds a send-image action.
func Image(url string) Action {
	return Action{Type: ActionImage, URL: url}
}

// SendTo builds a send-to-target action.
func SendTo(targetType string, targetID int64, message string) Action {
	return Action{Type: ActionSend, TargetType: targetType, TargetID: targetID, Message: message}
}

// Validate checks that the fields required by the action type are present.
func (a Action) Validate() error {
	switch a.Type {
	case ActionReply:
		return nil
	case ActionImage:
		if a.URL == "" {
			return fmt.Errorf("image action requires url")
		}
	case ActionSend:
		if a.TargetType != "private" && a.TargetType != "group" {
			return fmt.Errorf("send action has invalid target_type %q", a.TargetType)
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// Sender delivers outbound messages. It is implemented by the transport
// layer; the runtime never performs network I/O itself.
type Sender interface {
	SendText(ctx context.Context, target Target, text string) error
	SendImage(ctx context.Context, target Target, url string) error
}

// Target addresses a conversation.
type Target struct {
	Type string // "private" or "group"
	ID   int64
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Type, t.ID)
}

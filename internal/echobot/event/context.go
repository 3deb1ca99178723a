// Package event defines the normalized inbound event handed to plugins and
// the outbound API they reply through.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypePrivate = "private"
	MessageTypeGroup   = "group"
)

// ErrNoSender is returned when a reply is attempted on a context without an
// outbound sender.
var ErrNoSender = errors.New("event has no outbound sender")

// Context is a normalized inbound message event.
type Context struct {
	ID          string
	Time        time.Time
	MessageType string
	Text        string
	RawMessage  string
	UserID      int64
	GroupID     *int64
	SelfID      *int64
	SenderName  string

	sender Sender
}

// New builds a Context with a fresh id. groupID may be nil for private
// messages.
func New(messageType string, userID int64, groupID *int64, text string, sender Sender) *Context {
	return &Context{
		ID:          uuid.New().String(),
		Time:        time.Now(),
		MessageType: messageType,
		Text:        text,
		RawMessage:  text,
		UserID:      userID,
		GroupID:     groupID,
		sender:      sender,
	}
}

// WithSender replaces the outbound sender.
func (c *Context) WithSender(s Sender) *Context {
	c.sender = s
	return c
}

func (c *Context) IsPrivate() bool { return c.MessageType == MessageTypePrivate }
func (c *Context) IsGroup() bool   { return c.MessageType == MessageTypeGroup }

// Origin is the conversation the event came from.
func (c *Context) Origin() Target {
	if c.IsGroup() && c.GroupID != nil {
		return Target{Type: MessageTypeGroup, ID: *c.GroupID}
	}
	return Target{Type: MessageTypePrivate, ID: c.UserID}
}

// SessionKey identifies the conversation participant for session waiters.
func (c *Context) SessionKey() string {
	if c.GroupID != nil {
		return fmt.Sprintf("group:%d:%d", *c.GroupID, c.UserID)
	}
	return fmt.Sprintf("user:%d", c.UserID)
}

// Command parses Text as a prefixed command.
func (c *Context) Command() (Command, bool) {
	return ParseCommand(c.Text)
}

// Reply sends text back to the origin conversation.
func (c *Context) Reply(ctx context.Context, text string) error {
	if c.sender == nil {
		return ErrNoSender
	}
	return c.sender.SendText(ctx, c.Origin(), text)
}

// ReplyImage sends an image back to the origin conversation.
func (c *Context) ReplyImage(ctx context.Context, url string) error {
	if c.sender == nil {
		return ErrNoSender
	}
	return c.sender.SendImage(ctx, c.Origin(), url)
}

// SendTo sends text to an explicit target.
func (c *Context) SendTo(ctx context.Context, targetType string, targetID int64, text string) error {
	if c.sender == nil {
		return ErrNoSender
	}
	return c.sender.SendText(ctx, Target{Type: targetType, ID: targetID}, text)
}

// Apply delivers actions in order. Delivery continues past failures; all
// errors are returned joined.
func (c *Context) Apply(ctx context.Context, actions []Action) error {
	var errs []error
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
			continue
		}
		var err error
		switch a.Type {
		case ActionReply:
			err = c.Reply(ctx, a.Text)
		case ActionImage:
			err = c.ReplyImage(ctx, a.URL)
		case ActionSend:
			err = c.SendTo(ctx, a.TargetType, a.TargetID, a.Message)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("action %d (%s): %w", i, a.Type, err))
		}
	}
	return errors.Join(errs...)
}

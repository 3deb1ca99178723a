// Package console drives the plugin runtime from a line-oriented terminal.
// Every input line becomes a message event; replies are printed as
//
//	[reply] text
//	[image] url
//	[send group:123] text
//
// The lines ":connect" and ":quit" announce the bot and end the session.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	genericoptions "github.com/kiosk404/echobot/internal/pkg/options"
	"github.com/kiosk404/echobot/pkg/logger"
)

const (
	cmdConnect = ":connect"
	cmdQuit    = ":quit"
)

// Runtime is the part of *plugin.App the driver uses.
type Runtime interface {
	Dispatch(ctx context.Context, ev *event.Context) (*plugin.DispatchReport, error)
	NotifyBotConnect(ctx context.Context, selfID int64) error
}

// Driver reads messages from in and writes outbound messages to out.
type Driver struct {
	rt   Runtime
	opts *genericoptions.ConsoleOptions
	in   io.Reader

	mu  sync.Mutex
	out io.Writer

	wg sync.WaitGroup
}

var _ event.Sender = (*Driver)(nil)

func New(rt Runtime, opts *genericoptions.ConsoleOptions, in io.Reader, out io.Writer) *Driver {
	if opts == nil {
		opts = genericoptions.NewConsoleOptions()
	}
	return &Driver{rt: rt, opts: opts, in: in, out: out}
}

// Run reads lines until ":quit", EOF or ctx is done, then waits for the
// events still being handled. Each line is dispatched on its own goroutine
// so a plugin waiting for a follow-up message does not stall the reader.
func (d *Driver) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		sc := bufio.NewScanner(d.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
		readErr <- sc.Err()
		close(lines)
	}()

	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if quit := d.handleLine(ctx, line); quit {
				return nil
			}
		}
	}
}

func (d *Driver) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case cmdQuit:
		return true
	case cmdConnect:
		if err := d.rt.NotifyBotConnect(ctx, d.opts.SelfID); err != nil {
			logger.Warn("[Console] bot connect: %v", err)
		}
		return false
	}

	ev := d.newEvent(line)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		report, err := d.rt.Dispatch(ctx, ev)
		if err != nil {
			logger.Error("[Console] dispatch %q: %v", line, err)
			return
		}
		if len(report.Errors) > 0 {
			logger.Warn("[Console] %d plugin error(s) for %q", len(report.Errors), line)
		}
	}()
	return false
}

func (d *Driver) newEvent(text string) *event.Context {
	msgType := event.MessageTypePrivate
	var groupID *int64
	if d.opts.GroupID != 0 {
		msgType = event.MessageTypeGroup
		gid := d.opts.GroupID
		groupID = &gid
	}
	ev := event.New(msgType, d.opts.UserID, groupID, text, d)
	self := d.opts.SelfID
	ev.SelfID = &self
	ev.SenderName = d.opts.Nickname
	return ev
}

// origin is the conversation console lines belong to.
func (d *Driver) origin() event.Target {
	if d.opts.GroupID != 0 {
		return event.Target{Type: event.MessageTypeGroup, ID: d.opts.GroupID}
	}
	return event.Target{Type: event.MessageTypePrivate, ID: d.opts.UserID}
}

func (d *Driver) SendText(_ context.Context, target event.Target, text string) error {
	if target == d.origin() {
		return d.printf("[reply] %s\n", text)
	}
	return d.printf("[send %s] %s\n", target, text)
}

func (d *Driver) SendImage(_ context.Context, target event.Target, url string) error {
	if target == d.origin() {
		return d.printf("[image] %s\n", url)
	}
	return d.printf("[send %s] [image] %s\n", target, url)
}

func (d *Driver) printf(format string, args ...interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintf(d.out, format, args...)
	return err
}

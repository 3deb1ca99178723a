package event

import (
	"strings"
)

// CommandPrefixes are the leading characters that mark a command.
var CommandPrefixes = []string{"/", "!", "."}

// Command is a parsed "/name args..." message.
type Command struct {
	Prefix string
	Name   string
	Args   string
}

// ParseCommand splits text into a command name and the remaining argument
// string. It reports false when text does not start with a command prefix.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	for _, p := range CommandPrefixes {
		if !strings.HasPrefix(text, p) {
			continue
		}
		rest := text[len(p):]
		if rest == "" {
			return Command{}, false
		}
		name, args, _ := strings.Cut(rest, " ")
		if name == "" {
			return Command{}, false
		}
		return Command{Prefix: p, Name: name, Args: strings.TrimSpace(args)}, true
	}
	return Command{}, false
}

// Is reports whether the command name equals name or one of aliases.
func (c Command) Is(name string, aliases ...string) bool {
	if c.Name == name {
		return true
	}
	for _, a := range aliases {
		if c.Name == a {
			return true
		}
	}
	return false
}

// Fields splits Args on whitespace.
func (c Command) Fields() []string {
	return strings.Fields(c.Args)
}

package tui

import (
	"fmt"
	"strings"
)

// Command represents a parsed ":" command.
type Command struct {
	Name string
	Args []string
}

// aliases maps short forms to command names.
var aliases = map[string]string{
	"q":     "quit",
	"h":     "help",
	"c":     "chat",
	"n":     "notifications",
	"notif": "notifications",
	"r":     "refresh",
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}
	}
	name := strings.ToLower(fields[0])
	if full, ok := aliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: fields[1:]}
}

// Validate checks the argument count of known commands.
func (c Command) Validate() error {
	switch c.Name {
	case "":
		return fmt.Errorf("empty command")
	case "chat":
		if len(c.Args) < 1 || len(c.Args) > 2 {
			return fmt.Errorf("usage: :chat <user-id> [username]")
		}
	case "notifications":
		if len(c.Args) > 1 || (len(c.Args) == 1 && c.Args[0] != "unread") {
			return fmt.Errorf("usage: :notifications [unread]")
		}
	case "quit", "help", "refresh", "logout":
		if len(c.Args) > 0 {
			return fmt.Errorf("usage: :%s", c.Name)
		}
	default:
		return fmt.Errorf("unknown command: %s", c.Name)
	}
	return nil
}

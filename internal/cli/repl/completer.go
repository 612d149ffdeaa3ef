package repl

import (
	"sort"
	"strings"
)

// Completer knows the command paths available in the shell, such as
// "login" or "config show".
type Completer struct {
	commands []string
	roots    map[string]struct{}
}

// builtins are handled by the REPL itself.
var builtins = []string{"exit", "quit", "history"}

// NewCompleter creates a completer for the given command paths.
func NewCompleter(commands ...string) *Completer {
	c := &Completer{roots: make(map[string]struct{})}
	for _, cmd := range append(append([]string{}, commands...), builtins...) {
		cmd = strings.Join(strings.Fields(cmd), " ")
		if cmd == "" {
			continue
		}
		c.commands = append(c.commands, cmd)
		root, _, _ := strings.Cut(cmd, " ")
		c.roots[root] = struct{}{}
	}
	sort.Strings(c.commands)
	return c
}

// Complete returns every command path starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

// Known reports whether name is a top-level command.
func (c *Completer) Known(name string) bool {
	_, ok := c.roots[name]
	return ok
}

// Suggest returns top-level commands that start with word, or that word
// starts with (for a typo after a valid command name).
func (c *Completer) Suggest(word string) []string {
	if word == "" {
		return nil
	}
	var out []string
	for root := range c.roots {
		if strings.HasPrefix(root, word) || strings.HasPrefix(word, root) {
			out = append(out, root)
		}
	}
	sort.Strings(out)
	return out
}

// Package commands dispatches slash commands to their handlers.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Invocation carries one slash-command call from the chat platform.
type Invocation struct {
	// Name is the command without the leading slash, e.g. "coffee".
	Name      string
	Args      string
	ChannelID string
	UserID    string
	// IsAdmin reports whether the caller is a workspace admin or owner.
	IsAdmin bool
}

// Result is the handler's reply, delivered ephemerally to the caller.
type Result struct {
	Text string
}

// Handler executes one command invocation.
type Handler func(ctx context.Context, inv Invocation) (Result, error)

// Command describes a registered slash command.
type Command struct {
	Name        string
	Description string
	Usage       string
	// AdminOnly commands are rejected for non-admin callers.
	AdminOnly bool
	Handler   Handler
}

// Registry holds the command table and dispatches invocations.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command. Registering a duplicate name is an error.
func (r *Registry) Register(cmd *Command) error {
	if cmd.Name == "" {
		return fmt.Errorf("command name is empty")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q has no handler", cmd.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("command %q already registered", cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	return nil
}

// Execute dispatches an invocation to its handler. Unknown commands and
// admin violations produce a user-facing Result, not an error.
func (r *Registry) Execute(ctx context.Context, inv Invocation) (Result, error) {
	r.mu.RLock()
	cmd, ok := r.commands[inv.Name]
	r.mu.RUnlock()

	if !ok {
		return Result{Text: fmt.Sprintf("Unknown command `/%s`. Try `/help` for the list of commands.", inv.Name)}, nil
	}
	if cmd.AdminOnly && !inv.IsAdmin {
		return Result{Text: fmt.Sprintf("`/%s` is restricted to workspace admins.", inv.Name)}, nil
	}
	return cmd.Handler(ctx, inv)
}

// List returns the registered commands sorted by name.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HelpText renders a help listing for the caller, hiding admin commands
// from non-admins.
func (r *Registry) HelpText(isAdmin bool) string {
	var b strings.Builder
	b.WriteString("*Available commands*\n")
	for _, cmd := range r.List() {
		if cmd.AdminOnly && !isAdmin {
			continue
		}
		usage := cmd.Usage
		if usage == "" {
			usage = "/" + cmd.Name
		}
		fmt.Fprintf(&b, "• `%s`: %s\n", usage, cmd.Description)
	}
	return b.String()
}

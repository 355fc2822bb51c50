package bot

import (
	"context"
	"sort"
	"strings"

	"github.com/yiyinbot/yiyin/pkg/onebot"
)

// Access restricts who may run a command.
type Access int

const (
	Anyone Access = iota
	// Admin allows group owners, group admins and superusers.
	Admin
	// Superuser allows configured superusers only.
	Superuser
)

// Request is one command invocation.
type Request struct {
	Event   *onebot.Event
	Command *Command
	// Args is the plain text after the command name, trimmed.
	Args string
}

// Handler runs a command. A returned error is turned into a chat reply.
type Handler func(ctx context.Context, req *Request) error

// Command describes a chat command.
type Command struct {
	Name string
	// Module and Usage/Help feed the help menu.
	Module string
	Usage  string
	Help   string
	// Feature is the toggle key gating the command in groups. Empty means
	// always enabled.
	Feature   string
	Access    Access
	GroupOnly bool
	// ToMe commands only answer in private chat or when the bot is
	// mentioned.
	ToMe    bool
	Handler Handler
}

// Router matches message text against registered command names.
type Router struct {
	prefix  string
	ordered []*Command
	byLen   []*Command
}

// NewRouter returns a router for commands starting with prefix.
func NewRouter(prefix string) *Router {
	return &Router{prefix: prefix}
}

// Register adds commands. Registration order is kept for help output.
func (r *Router) Register(cmds ...*Command) {
	r.ordered = append(r.ordered, cmds...)
	r.byLen = append(r.byLen, cmds...)
	sort.SliceStable(r.byLen, func(i, j int) bool {
		return len(r.byLen[i].Name) > len(r.byLen[j].Name)
	})
}

// Commands returns the commands in registration order.
func (r *Router) Commands() []*Command { return r.ordered }

// Match finds the command text invokes. The longest matching name wins, so
// /截图上传 never runs /上传. Arguments may follow the name directly, as in
// /贴3个.
func (r *Router) Match(text string) (*Command, string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), r.prefix)
	if !ok {
		return nil, "", false
	}
	for _, c := range r.byLen {
		if args, ok := strings.CutPrefix(rest, c.Name); ok {
			return c, strings.TrimSpace(args), true
		}
	}
	return nil, "", false
}

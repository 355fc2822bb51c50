package bot

import (
	"context"
	"strings"

	"github.com/yiyinbot/yiyin/pkg/onebot"
)

func (b *Bot) helpCommands() []*Command {
	return []*Command{{
		Name:    "help",
		Module:  "帮助",
		Usage:   "@Bot /help",
		Help:    "查看本菜单",
		ToMe:    true,
		Handler: b.handleHelp,
	}}
}

// helpPages groups the registered commands by module, one page per module
// in registration order.
func helpPages(cmds []*Command) []string {
	var (
		order  []string
		byName = map[string][]string{}
	)
	for _, c := range cmds {
		if c.Module == "" {
			continue
		}
		if _, ok := byName[c.Module]; !ok {
			order = append(order, c.Module)
			byName[c.Module] = []string{"📦 " + c.Module}
		}
		byName[c.Module] = append(byName[c.Module], "  "+c.Usage+"\n    "+c.Help)
	}
	pages := make([]string, len(order))
	for i, m := range order {
		pages[i] = strings.Join(byName[m], "\n")
	}
	return pages
}

func (b *Bot) handleHelp(ctx context.Context, req *Request) error {
	ev := req.Event
	pages := helpPages(b.router.Commands())
	return b.sendForward(ctx, ev, onebot.TextNodes(b.botName(ctx), ev.SelfID, pages...))
}

package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/yiyinbot/yiyin/pkg/toggle"
)

func (b *Bot) toggleCommands() []*Command {
	cmds := []*Command{
		{Name: "功能列表", Usage: "/功能列表", Help: "查看本群各功能的启用状态", Handler: b.handleFeatureList},
		{Name: "启用", Usage: "/启用 <功能名>", Help: "在本群启用功能（群管理员）", Access: Admin, Handler: b.handleEnable},
		{Name: "禁用", Usage: "/禁用 <功能名>", Help: "在本群禁用功能（群管理员）", Access: Admin, Handler: b.handleDisable},
	}
	for _, c := range cmds {
		c.Module = "功能开关"
		c.GroupOnly = true
	}
	return cmds
}

func (b *Bot) handleFeatureList(ctx context.Context, req *Request) error {
	statuses, err := b.deps.Toggles.Status(ctx, req.Event.Group())
	if err != nil {
		return err
	}
	return b.reply(ctx, req.Event, formatStatus(statuses))
}

func formatStatus(statuses []toggle.Status) string {
	lines := []string{"「本群功能状态」", ""}
	for _, s := range statuses {
		mark := "✅ 已启用"
		if !s.Enabled {
			mark = "❌ 已禁用"
		}
		lines = append(lines, fmt.Sprintf("  %s  %s", s.Name, mark))
	}
	lines = append(lines, "", "管理员可使用：", "  /启用 <功能名>", "  /禁用 <功能名>")
	return strings.Join(lines, "\n")
}

func (b *Bot) handleEnable(ctx context.Context, req *Request) error {
	if req.Args == "" {
		return b.reply(ctx, req.Event, "请指定要启用的功能名，可用功能："+toggle.Names())
	}
	f, err := b.deps.Toggles.Enable(ctx, req.Event.Group(), req.Args)
	if err != nil {
		return err
	}
	return b.reply(ctx, req.Event, fmt.Sprintf("已在本群启用功能「%s」✓", f.Name))
}

func (b *Bot) handleDisable(ctx context.Context, req *Request) error {
	if req.Args == "" {
		return b.reply(ctx, req.Event, "请指定要禁用的功能名，可用功能："+toggle.Names())
	}
	f, err := b.deps.Toggles.Disable(ctx, req.Event.Group(), req.Args)
	if err != nil {
		return err
	}
	return b.reply(ctx, req.Event, fmt.Sprintf("已在本群禁用功能「%s」✓", f.Name))
}

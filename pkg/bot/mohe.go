package bot

import (
	"context"
	"os"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/mohe"
	"github.com/yiyinbot/yiyin/pkg/onebot"
)

const moheFeature = "mohe"

func (b *Bot) moheCommands() []*Command {
	return []*Command{{
		Name:      "随机摩诃",
		Module:    "摩诃",
		Usage:     "/随机摩诃",
		Help:      "逐条发送 3-5 条随机摩诃语录（默认关闭，/启用 摩诃）",
		GroupOnly: true,
		Handler:   b.handleMohe,
	}}
}

// handleMohe checks the toggle itself so a disabled group is told how to
// switch the feature on instead of being ignored.
func (b *Bot) handleMohe(ctx context.Context, req *Request) error {
	ev := req.Event
	if !b.deps.Toggles.IsEnabled(ctx, ev.Group(), moheFeature) {
		return b.reply(ctx, ev, "摩诃功能未启用，请管理员使用 /启用 摩诃 开启")
	}

	c, err := mohe.Load(b.cfg.MohePaths())
	if err != nil {
		return err
	}
	items := c.Sample(nil, mohe.Count(nil))
	if len(items) == 0 {
		return errors.New(errors.ErrCodeNotConfigured, "还没有摩诃语录")
	}

	for i, item := range items {
		if i > 0 {
			b.sleep(mohe.Pause(nil))
		}
		msg := onebot.Message{onebot.Text(item.Text)}
		if item.IsImage() {
			data, err := os.ReadFile(item.Image)
			if err != nil {
				b.logger.Warn("skipping unreadable mohe image", "path", item.Image, "err", err)
				continue
			}
			msg = onebot.Message{onebot.Image(data)}
		}
		if err := b.send(ctx, ev, msg); err != nil {
			return err
		}
	}
	return nil
}

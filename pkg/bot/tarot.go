package bot

import (
	"context"

	"github.com/yiyinbot/yiyin/pkg/onebot"
	"github.com/yiyinbot/yiyin/pkg/tarot"
)

func (b *Bot) tarotCommands() []*Command {
	return []*Command{{
		Name:    "抽塔罗牌",
		Module:  "塔罗牌",
		Usage:   "/抽塔罗牌",
		Help:    "随机抽一张大阿卡纳，正位或逆位",
		Feature: "tarot",
		Handler: b.handleTarot,
	}}
}

func (b *Bot) handleTarot(ctx context.Context, req *Request) error {
	ev := req.Event
	reading := tarot.Draw(nil)

	msg := onebot.Message{
		onebot.At(ev.UserID),
		onebot.Text(" 抽到了：\n" + reading.Title() + "\n"),
	}
	img, err := b.pool.Render(ctx, "tarot", func() ([]byte, error) {
		return tarot.RenderCard(b.cfg.Tarot.ImageDir, reading)
	})
	if err != nil {
		b.logger.Warn("tarot card image unavailable", "card", reading.Card.ID, "err", err)
	} else {
		msg = append(msg, onebot.Image(img))
	}
	msg = append(msg, onebot.Text("\n"+reading.Orientation()+"："+reading.Meaning()))
	return b.send(ctx, ev, msg)
}

package bot

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/onebot"
	"github.com/yiyinbot/yiyin/pkg/render/symmetric"
)

func (b *Bot) symmetricCommands() []*Command {
	return []*Command{{
		Name:    "对称",
		Module:  "对称图片",
		Usage:   "/对称 [左/右/上/下] [图片或引用图片]",
		Help:    "保留图片的一半并镜像到另一半，支持动图和透明背景，默认保留左半",
		Feature: "symmetric",
		Handler: b.handleSymmetric,
	}}
}

// parseDirectionArg reads the direction from the first argument token or
// its first character. Anything unrecognised falls back to the default.
func parseDirectionArg(args string) symmetric.Direction {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return symmetric.DefaultDirection
	}
	if d, err := symmetric.ParseDirection(fields[0]); err == nil {
		return d
	}
	r, _ := utf8.DecodeRuneInString(fields[0])
	if d, err := symmetric.ParseDirection(string(r)); err == nil {
		return d
	}
	return symmetric.DefaultDirection
}

func (b *Bot) handleSymmetric(ctx context.Context, req *Request) error {
	ev := req.Event
	dir := parseDirectionArg(req.Args)

	urls := b.imageURLs(ctx, ev)
	if len(urls) == 0 {
		return b.reply(ctx, ev, "请附带图片或回复一张图片，例如：\n"+
			"/对称 左 [图片]\n"+
			"/对称 [图片]\n"+
			"回复图片消息并发送 /对称 右")
	}

	data, err := b.download(ctx, urls[0])
	if err != nil {
		b.logger.Debug("image download failed", "url", urls[0], "err", err)
		return b.reply(ctx, ev, "图片下载失败，请稍后重试")
	}

	out, err := b.pool.Render(ctx, "symmetric", func() ([]byte, error) {
		return symmetric.Transform(data, dir)
	})
	switch {
	case errors.Is(err, errors.ErrCodeDecode):
		return b.reply(ctx, ev, "无法识别的图片格式，请发送 PNG、JPG 或 GIF 图片")
	case err != nil:
		return b.reply(ctx, ev, "图片处理失败："+replyText(err))
	}
	return b.send(ctx, ev, onebot.Message{onebot.Image(out)})
}

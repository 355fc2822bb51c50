package bot

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/yiyinbot/yiyin/pkg/emoji"
	"github.com/yiyinbot/yiyin/pkg/onebot"
)

// reactionPause spaces out the reactions of /贴N个.
const reactionPause = 300 * time.Millisecond

// listChunk is the number of emoji per forwarded list node.
const listChunk = 30

var randomCountRE = regexp.MustCompile(`^(\d+)个$`)

func (b *Bot) emojiCommands() []*Command {
	cmds := []*Command{
		{Name: "贴表情列表", Usage: "/贴表情列表", Help: "以聊天记录形式列出可用表情", Handler: b.handleEmojiList},
		{Name: "贴", Usage: "/贴 <ID/含义/emoji> 或 /贴<数字>个（引用消息）", Help: "给引用的消息贴表情，或随机贴N个", Handler: b.handleStick},
		{Name: "发", Usage: "/发 <ID/含义> 或 /发 随机", Help: "发送一个QQ系统表情", Handler: b.handleSendFace},
	}
	for _, c := range cmds {
		c.Module = "贴表情"
		c.GroupOnly = true
	}
	return cmds
}

func (b *Bot) handleEmojiList(ctx context.Context, req *Request) error {
	ev := req.Event
	pages := b.deps.Emoji.Pages(listChunk)
	return b.sendForward(ctx, ev, onebot.TextNodes(b.botName(ctx), ev.SelfID, pages...))
}

func (b *Bot) handleStick(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return nil
	}
	target := ev.MessageID
	if id, ok := ev.Message.ReplyID(); ok {
		target = id
	}

	if m := randomCountRE.FindStringSubmatch(req.Args); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		ids := emoji.Sample(nil, n, b.cfg.Emoji.MaxRandomCount, b.cfg.Emoji.MaxEmojiID)
		for i, id := range ids {
			if err := b.deps.API.SetMsgEmojiLike(ctx, target, id); err != nil {
				b.logger.Debug("reaction failed", "emoji", id, "err", err)
			}
			if i < len(ids)-1 {
				b.sleep(reactionPause)
			}
		}
		return nil
	}

	id, ok := b.deps.Emoji.Resolve(req.Args)
	if !ok {
		return nil
	}
	if err := b.deps.API.SetMsgEmojiLike(ctx, target, id); err != nil {
		b.logger.Debug("reaction failed", "emoji", id, "err", err)
	}
	return nil
}

func (b *Bot) handleSendFace(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return nil
	}
	var id string
	if req.Args == "随机" {
		id = strconv.Itoa(emoji.RandomID(nil, b.cfg.Emoji.MaxEmojiID))
	} else {
		var ok bool
		if id, ok = b.deps.Emoji.Resolve(req.Args); !ok {
			return nil
		}
	}
	return b.send(ctx, ev, onebot.Message{onebot.Face(id)})
}

package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/integrations/translate"
	"github.com/yiyinbot/yiyin/pkg/onebot"
)

func (b *Bot) translateCommands() []*Command {
	return []*Command{{
		Name:    "翻译",
		Module:  "翻译",
		Usage:   "/翻译 <目标语言> <文本>",
		Help:    "翻译成" + translate.SupportedList() + "，源语言自动识别",
		Handler: b.handleTranslate,
	}}
}

func (b *Bot) handleTranslate(ctx context.Context, req *Request) error {
	ev := req.Event
	if b.deps.Translator == nil || !b.deps.Translator.Configured() {
		return b.reply(ctx, ev, "翻译 API 未配置，请联系管理员。")
	}
	if req.Args == "" {
		return b.reply(ctx, ev, "用法：/翻译 <目标语言> <文本>\n"+
			"支持语言："+translate.SupportedList()+"\n"+
			"示例：/翻译 英文 你好世界")
	}
	lang := strings.Fields(req.Args)[0]
	text := strings.TrimSpace(strings.TrimPrefix(req.Args, lang))
	if text == "" {
		return b.reply(ctx, ev, "请同时提供目标语言和待翻译文本，例如：/翻译 英文 你好世界")
	}
	target, err := translate.ParseLanguage(lang)
	if err != nil {
		return b.reply(ctx, ev, errors.UserMessage(err)+"\n支持的语言："+translate.SupportedList())
	}
	out, err := b.deps.Translator.Translate(ctx, text, target, "")
	if err != nil {
		b.logger.Warn("translate failed", "err", err)
		return b.reply(ctx, ev, "翻译失败，请稍后重试。")
	}
	return b.reply(ctx, ev, fmt.Sprintf("【翻译 → %s】\n%s", translate.DisplayName(target), out))
}

func (b *Bot) wolframCommands() []*Command {
	return []*Command{{
		Name:    "算",
		Module:  "数学求解",
		Usage:   "/算 <问题>",
		Help:    "用 WolframAlpha 计算或查询，例如 /算 integrate x^2 dx",
		Feature: "wolfram",
		Handler: b.handleWolfram,
	}}
}

func (b *Bot) handleWolfram(ctx context.Context, req *Request) error {
	ev := req.Event
	if b.deps.Solver == nil || !b.deps.Solver.Configured() {
		return b.reply(ctx, ev, "WolframAlpha API 未配置，请联系管理员。")
	}
	if req.Args == "" {
		return b.reply(ctx, ev, "请输入要计算的问题，例如：/算 integrate x^2 dx")
	}
	atSender := func(text string) error {
		return b.send(ctx, ev, onebot.Message{onebot.At(ev.UserID), onebot.Text(" " + text)})
	}

	res, err := b.deps.Solver.Query(ctx, req.Args)
	switch {
	case ctx.Err() != nil || errors.Is(err, errors.ErrCodeTimeout):
		return atSender("查询超时，请稍后重试。")
	case err != nil:
		b.logger.Warn("wolfram query failed", "err", err)
		return atSender("查询出错，请稍后重试。")
	case !res.Success:
		hint := ""
		if res.Tips != "" {
			hint = "\n提示：" + res.Tips
		}
		return atSender("WolframAlpha 无法理解该问题，请尝试换一种表述。" + hint)
	case len(res.Pods) == 0:
		return atSender("未获取到结果，请尝试换一种表述。")
	}

	name := b.botName(ctx)
	nodes := make(onebot.Message, 0, len(res.Pods))
	for _, pod := range res.Pods {
		content := onebot.Message{onebot.Text("【" + pod.Title + "】\n")}
		for _, sp := range pod.Subpods {
			if sp.ImageURL != "" {
				content = append(content, onebot.ImageURL(sp.ImageURL))
			}
			if sp.Plaintext != "" {
				content = append(content, onebot.Text("\n"+sp.Plaintext))
			}
		}
		nodes = append(nodes, onebot.Node(name, ev.SelfID, content))
	}
	return b.sendForward(ctx, ev, nodes)
}

func (b *Bot) chooseCommands() []*Command {
	return []*Command{{
		Name:    "选",
		Module:  "随机选择",
		Usage:   "/选 <选项1>还是<选项2>[还是<选项3>...]",
		Help:    "帮你从几个选项里随机挑一个",
		Handler: b.handleChoose,
	}}
}

// splitOptions splits on 还是 and drops empty options.
func splitOptions(s string) []string {
	var opts []string
	for _, o := range strings.Split(s, "还是") {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	return opts
}

func (b *Bot) handleChoose(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return b.reply(ctx, ev, "用法：/选 <选项1>还是<选项2>[还是<选项3>...]\n示例：/选 火锅还是烧烤还是麻辣烫")
	}
	opts := splitOptions(req.Args)
	if len(opts) < 2 {
		return b.reply(ctx, ev, "至少需要两个选项哦，用「还是」分隔\n示例：/选 火锅还是烧烤")
	}
	return b.reply(ctx, ev, "我建议你选择："+opts[rand.IntN(len(opts))])
}

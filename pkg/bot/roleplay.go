package bot

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yiyinbot/yiyin/pkg/config"
	"github.com/yiyinbot/yiyin/pkg/integrations/llm"
	"github.com/yiyinbot/yiyin/pkg/onebot"
)

const roleplayFeature = "roleplay"

// fallbackReply answers a mention when the model returns nothing.
const fallbackReply = "唔……脑子里的证明过程断了，等一下"

// roleplay keeps a bounded chat history per group and decides when the
// persona speaks up.
type roleplay struct {
	chatter     llm.Chatter
	prompt      string
	opts        llm.Options
	probability float64
	cooldown    time.Duration
	maxContext  int

	now    func() time.Time
	random func() float64

	mu        sync.Mutex
	history   map[int64][]llm.Message
	lastReply map[int64]time.Time
}

func newRoleplay(c llm.Chatter, prompt string, cfg config.Roleplay) *roleplay {
	opts := llm.DefaultOptions()
	if cfg.Model != "" {
		opts.Model = cfg.Model
	}
	if cfg.MaxReplyTokens > 0 {
		opts.MaxTokens = cfg.MaxReplyTokens
	}
	if cfg.Temperature > 0 {
		opts.Temperature = cfg.Temperature
	}
	return &roleplay{
		chatter:     c,
		prompt:      prompt,
		opts:        opts,
		probability: cfg.ReplyProbability,
		cooldown:    cfg.Cooldown.Duration,
		maxContext:  max(cfg.MaxContext, 1),
		now:         time.Now,
		random:      rand.Float64,
		history:     map[int64][]llm.Message{},
		lastReply:   map[int64]time.Time{},
	}
}

// appendLocked adds m to the group history, dropping the oldest entries
// beyond maxContext. r.mu must be held.
func (r *roleplay) appendLocked(group int64, m llm.Message) {
	h := append(r.history[group], m)
	if over := len(h) - r.maxContext; over > 0 {
		h = append([]llm.Message(nil), h[over:]...)
	}
	r.history[group] = h
}

// observe records a group message and, when the persona should answer,
// returns the conversation to send to the model.
func (r *roleplay) observe(group int64, speaker, text string, atMe bool) ([]llm.Message, bool) {
	content := speaker + " 发送了一条消息"
	if text != "" {
		content = speaker + "：" + text
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(group, llm.Message{Role: llm.RoleUser, Content: content})

	if !atMe {
		if r.now().Sub(r.lastReply[group]) < r.cooldown {
			return nil, false
		}
		if r.random() >= r.probability {
			return nil, false
		}
	}

	msgs := make([]llm.Message, 0, len(r.history[group])+1)
	if r.prompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: r.prompt})
	}
	return append(msgs, r.history[group]...), true
}

// answered records the persona's reply and restarts the cooldown.
func (r *roleplay) answered(group int64, reply string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(group, llm.Message{Role: llm.RoleAssistant, Content: reply})
	r.lastReply[group] = r.now()
}

// cleanReply trims whitespace and the quotes models like to wrap lines in.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.Trim(s, `'`)
}

func (b *Bot) roleplayReply(ctx context.Context, ev *onebot.Event) {
	r := b.roleplay
	atMe := ev.ToMe()
	speaker := ev.Sender.DisplayName()
	if speaker == "" {
		speaker = strconv.FormatInt(ev.UserID, 10)
	}
	msgs, ok := r.observe(ev.GroupID, speaker, ev.Message.PlainText(), atMe)
	if !ok {
		return
	}

	reply, err := r.chatter.Chat(ctx, msgs, r.opts)
	if err != nil {
		b.logger.Warn("roleplay chat failed", "group", ev.GroupID, "err", err)
	}
	reply = cleanReply(reply)
	if reply == "" {
		if !atMe {
			return
		}
		reply = fallbackReply
	}
	r.answered(ev.GroupID, reply)

	msg := onebot.Message{onebot.Text(reply)}
	if atMe {
		msg = onebot.Message{onebot.At(ev.UserID), onebot.Text(" " + reply)}
	}
	if err := b.send(ctx, ev, msg); err != nil {
		b.logger.Error("cannot send roleplay reply", "err", err)
	}
}

package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yiyinbot/yiyin/pkg/config"
	"github.com/yiyinbot/yiyin/pkg/integrations/llm"
	"github.com/yiyinbot/yiyin/pkg/onebot"
)

type fakeChatter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (f *fakeChatter) Chat(_ context.Context, msgs []llm.Message, _ llm.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	return f.reply, f.err
}

func (f *fakeChatter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type roleplayClock struct {
	now  time.Time
	roll float64
}

func newRoleplayBot(t *testing.T, chat *fakeChatter, enable bool) (*Bot, *fakeAPI, *roleplayClock) {
	t.Helper()
	b, api := newTestBot(t, func(c *config.Config, d *Deps) {
		c.Roleplay.Prompt = "你是一印"
		c.Roleplay.ReplyProbability = 0.5
		c.Roleplay.MaxContext = 4
		c.Roleplay.Cooldown = config.Duration{Duration: time.Minute}
		d.Chatter = chat
	})
	if enable {
		if _, err := b.deps.Toggles.Enable(context.Background(), "30003", "角色扮演"); err != nil {
			t.Fatal(err)
		}
	}
	clock := &roleplayClock{now: time.Unix(1_700_000_000, 0), roll: 0.9}
	b.roleplay.now = func() time.Time { return clock.now }
	b.roleplay.random = func() float64 { return clock.roll }
	return b, api, clock
}

func mention(text string) *onebot.Event {
	ev := groupMsg("")
	ev.Message = onebot.Message{onebot.At(selfID), onebot.Text(" " + text)}
	return ev
}

func TestRoleplayDisabledByDefault(t *testing.T) {
	chat := &fakeChatter{reply: "在"}
	b, api, _ := newRoleplayBot(t, chat, false)
	b.HandleEvent(context.Background(), mention("你好"))
	if chat.count() != 0 || api.count() != 0 {
		t.Errorf("calls = %d, sent = %d", chat.count(), api.count())
	}
}

func TestRoleplayProbabilityAndCooldown(t *testing.T) {
	chat := &fakeChatter{reply: "嗯"}
	b, api, clock := newRoleplayBot(t, chat, true)
	ctx := context.Background()

	b.HandleEvent(ctx, groupMsg("今天天气不错"))
	if chat.count() != 0 {
		t.Fatal("replied above probability")
	}

	clock.roll = 0.1
	b.HandleEvent(ctx, groupMsg("是啊"))
	if chat.count() != 1 || api.lastText(t) != "嗯" {
		t.Fatalf("calls = %d, sent = %v", chat.count(), api.texts())
	}

	clock.now = clock.now.Add(30 * time.Second)
	b.HandleEvent(ctx, groupMsg("再说一句"))
	if chat.count() != 1 {
		t.Error("replied during cooldown")
	}

	clock.now = clock.now.Add(time.Minute)
	b.HandleEvent(ctx, groupMsg("又来了"))
	if chat.count() != 2 {
		t.Error("no reply after cooldown")
	}
}

func TestRoleplayMentionBypassesGates(t *testing.T) {
	chat := &fakeChatter{reply: `  "好的"  `}
	b, api, _ := newRoleplayBot(t, chat, true)

	b.HandleEvent(context.Background(), mention("帮我证明一下"))

	msg := api.last(t)
	if len(msg) != 2 || msg[0].Type != onebot.SegAt || msg[0].Str("qq") != "20002" {
		t.Fatalf("reply = %+v", msg)
	}
	if got := msg.PlainText(); got != "好的" {
		t.Errorf("text = %q", got)
	}

	msgs := chat.calls[0]
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != "你是一印" {
		t.Errorf("system = %+v", msgs[0])
	}
	if last := msgs[len(msgs)-1]; last.Content != "阿印：帮我证明一下" {
		t.Errorf("last = %+v", last)
	}
}

func TestRoleplayFallback(t *testing.T) {
	chat := &fakeChatter{err: errors.New("boom")}
	b, api, clock := newRoleplayBot(t, chat, true)
	ctx := context.Background()

	clock.roll = 0
	b.HandleEvent(ctx, groupMsg("路过"))
	if api.count() != 0 {
		t.Fatalf("sent %v for unprompted failure", api.texts())
	}

	b.HandleEvent(ctx, mention("在吗"))
	if got := api.lastText(t); got != fallbackReply {
		t.Errorf("reply = %q", got)
	}
}

func TestRoleplayCommandsTakePriority(t *testing.T) {
	chat := &fakeChatter{reply: "嗯"}
	b, api, clock := newRoleplayBot(t, chat, true)
	clock.roll = 0

	b.HandleEvent(context.Background(), groupMsg("/选 猫还是狗"))
	if chat.count() != 0 {
		t.Error("command text reached the model")
	}
	if api.count() != 1 {
		t.Errorf("sent = %v", api.texts())
	}
}

func TestRoleplayHistoryBounded(t *testing.T) {
	r := newRoleplay(&fakeChatter{}, "p", config.Roleplay{MaxContext: 3})
	r.random = func() float64 { return 1 }
	for _, text := range []string{"一", "二", "三", "四", ""} {
		r.observe(1, "甲", text, false)
	}
	h := r.history[1]
	if len(h) != 3 {
		t.Fatalf("history = %d", len(h))
	}
	want := []string{"甲：三", "甲：四", "甲 发送了一条消息"}
	for i, m := range h {
		if m.Content != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, m.Content, want[i])
		}
	}

	msgs, ok := r.observe(1, "乙", "在", true)
	if !ok || len(msgs) != 4 || msgs[0].Role != llm.RoleSystem {
		t.Errorf("observe = %d msgs, %v", len(msgs), ok)
	}
	if len(r.history[2]) != 0 {
		t.Error("groups share history")
	}
}

func TestCleanReply(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  你好 ", "你好"},
		{`"引号"`, "引号"},
		{`'单引号'`, "单引号"},
		{"\n\"'混合'\"\n", "混合"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanReply(tt.in); got != tt.want {
			t.Errorf("cleanReply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

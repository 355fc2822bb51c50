// Package bot turns OneBot message events into feature calls.
//
// Every command starts with "/" and is matched by name (longest name
// first). Group commands are gated by the per-group feature switches in
// [toggle], and admin commands check the sender's group role or the
// configured superusers. Messages that are not commands feed the
// role-play persona when a group has it enabled.
//
// Image work (mirroring, screenshots, tarot cards) runs on a bounded
// [Pool] so a burst of requests cannot starve the webhook.
package bot

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yiyinbot/yiyin/pkg/config"
	"github.com/yiyinbot/yiyin/pkg/emoji"
	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/httputil"
	"github.com/yiyinbot/yiyin/pkg/integrations/llm"
	"github.com/yiyinbot/yiyin/pkg/integrations/wolfram"
	"github.com/yiyinbot/yiyin/pkg/observability"
	"github.com/yiyinbot/yiyin/pkg/onebot"
	"github.com/yiyinbot/yiyin/pkg/quotes"
	"github.com/yiyinbot/yiyin/pkg/toggle"
)

// Prefix starts every command.
const Prefix = "/"

// downloadParallelism bounds concurrent image downloads per command.
const downloadParallelism = 4

// Translator translates text. Implemented by translate.Client.
type Translator interface {
	Configured() bool
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// Solver answers math and knowledge queries. Implemented by wolfram.Client.
type Solver interface {
	Configured() bool
	Query(ctx context.Context, input string) (*wolfram.Result, error)
}

// Avatars fetches QQ avatars. Implemented by avatar.Client.
type Avatars interface {
	Fetch(ctx context.Context, userID string) []byte
}

// Screenshotter renders a chat bubble. Implemented by screenshot.Renderer.
type Screenshotter interface {
	Render(avatar []byte, nickname, text string) ([]byte, error)
}

// Deps are the services the bot calls. Optional services may be nil; the
// commands that need them then reply that they are not configured.
type Deps struct {
	API         onebot.API
	Quotes      *quotes.Book
	Toggles     *toggle.Toggles
	Screenshots Screenshotter
	Avatars     Avatars
	Translator  Translator
	Solver      Solver
	Chatter     llm.Chatter
	Emoji       *emoji.Catalog
	HTTP        *http.Client
	Logger      *log.Logger
}

// Bot dispatches events to commands and the role-play persona.
type Bot struct {
	cfg      config.Config
	deps     Deps
	router   *Router
	pool     *Pool
	roleplay *roleplay
	logger   *log.Logger

	// sleep paces repeated API calls; tests replace it.
	sleep func(time.Duration)

	nameMu   sync.Mutex
	nickname string
}

// New wires a bot from cfg and deps.
func New(cfg config.Config, deps Deps) (*Bot, error) {
	if deps.API == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "bot needs a OneBot API client")
	}
	if deps.Toggles == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "bot needs feature toggles")
	}
	if deps.Emoji == nil {
		deps.Emoji = emoji.Default()
	}
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	b := &Bot{
		cfg:      cfg,
		deps:     deps,
		router:   NewRouter(Prefix),
		pool:     NewPool(cfg.Workers),
		logger:   logger,
		sleep:    time.Sleep,
		nickname: cfg.OneBot.Nickname,
	}
	if deps.Chatter != nil {
		prompt, err := cfg.RoleplayPrompt()
		if err != nil {
			return nil, err
		}
		b.roleplay = newRoleplay(deps.Chatter, prompt, cfg.Roleplay)
	}
	b.registerCommands()
	return b, nil
}

// Router returns the command router.
func (b *Bot) Router() *Router { return b.router }

func (b *Bot) registerCommands() {
	b.router.Register(b.symmetricCommands()...)
	b.router.Register(b.quoteCommands()...)
	b.router.Register(b.toggleCommands()...)
	b.router.Register(b.tarotCommands()...)
	b.router.Register(b.moheCommands()...)
	b.router.Register(b.translateCommands()...)
	b.router.Register(b.wolframCommands()...)
	b.router.Register(b.chooseCommands()...)
	b.router.Register(b.emojiCommands()...)
	b.router.Register(b.helpCommands()...)
}

// HandleEvent implements [onebot.Handler].
func (b *Bot) HandleEvent(ctx context.Context, ev *onebot.Event) {
	if ev.PostType != onebot.PostMessage || ev.UserID == ev.SelfID {
		return
	}
	cmd, args, ok := b.router.Match(ev.Message.PlainText())
	if !ok {
		if ev.IsGroupMessage() && b.roleplay != nil && b.deps.Toggles.IsEnabled(ctx, ev.Group(), roleplayFeature) {
			b.roleplayReply(ctx, ev)
		}
		return
	}
	if !b.allowed(ctx, cmd, ev) {
		return
	}

	start := time.Now()
	err := cmd.Handler(ctx, &Request{Event: ev, Command: cmd, Args: args})
	observability.Bot().OnCommand(ctx, cmd.Name, ev.Group(), time.Since(start), err)
	if err != nil {
		b.logger.Warn("command failed", "command", cmd.Name, "group", ev.Group(), "user", ev.UserID, "err", err)
		if sendErr := b.reply(ctx, ev, replyText(err)); sendErr != nil {
			b.logger.Error("cannot send reply", "err", sendErr)
		}
	}
}

func (b *Bot) allowed(ctx context.Context, cmd *Command, ev *onebot.Event) bool {
	group := ev.IsGroupMessage()
	if cmd.GroupOnly && !group {
		return false
	}
	if cmd.ToMe && group && !ev.ToMe() {
		return false
	}
	if group && cmd.Feature != "" && !b.deps.Toggles.IsEnabled(ctx, ev.Group(), cmd.Feature) {
		b.logger.Debug("feature disabled", "command", cmd.Name, "group", ev.Group())
		return false
	}
	switch cmd.Access {
	case Admin:
		if !b.isAdmin(ev) {
			b.logger.Debug("not an admin", "command", cmd.Name, "user", ev.UserID)
			return false
		}
	case Superuser:
		if !b.isSuperuser(ev) {
			b.logger.Debug("not a superuser", "command", cmd.Name, "user", ev.UserID)
			return false
		}
	}
	return true
}

func (b *Bot) isSuperuser(ev *onebot.Event) bool {
	return b.cfg.IsSuperuser(strconv.FormatInt(ev.UserID, 10))
}

func (b *Bot) isAdmin(ev *onebot.Event) bool {
	return ev.Sender.IsAdmin() || b.isSuperuser(ev)
}

// replyText maps an error to the chat reply. Coded errors carry a message
// meant for users; anything else gets a generic apology.
func replyText(err error) string {
	if errors.GetCode(err) != "" {
		return errors.UserMessage(err)
	}
	return "出错了，请稍后重试"
}

// send posts msg to the chat ev came from.
func (b *Bot) send(ctx context.Context, ev *onebot.Event, msg onebot.Message) error {
	var err error
	if ev.IsGroupMessage() {
		_, err = b.deps.API.SendGroupMsg(ctx, ev.GroupID, msg)
	} else {
		_, err = b.deps.API.SendPrivateMsg(ctx, ev.UserID, msg)
	}
	return err
}

func (b *Bot) reply(ctx context.Context, ev *onebot.Event, text string) error {
	return b.send(ctx, ev, onebot.Message{onebot.Text(text)})
}

// sendForward posts nodes as a merged forward message in groups. Private
// chats get each node's content as its own message.
func (b *Bot) sendForward(ctx context.Context, ev *onebot.Event, nodes onebot.Message) error {
	if ev.IsGroupMessage() {
		return b.deps.API.SendGroupForwardMsg(ctx, ev.GroupID, nodes)
	}
	for _, n := range nodes {
		content, _ := n.Data["content"].(onebot.Message)
		if len(content) == 0 {
			continue
		}
		if _, err := b.deps.API.SendPrivateMsg(ctx, ev.UserID, content); err != nil {
			return err
		}
	}
	return nil
}

// botName is the name shown on forward nodes: the configured nickname,
// else the login nickname, else the configured bot name.
func (b *Bot) botName(ctx context.Context) string {
	b.nameMu.Lock()
	defer b.nameMu.Unlock()
	if b.nickname != "" {
		return b.nickname
	}
	if info, err := b.deps.API.GetLoginInfo(ctx); err == nil && info.Nickname != "" {
		b.nickname = info.Nickname
		return b.nickname
	}
	return b.cfg.BotName
}

// download fetches an image URL with the bot's HTTP client.
func (b *Bot) download(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		var err error
		data, err = httputil.Download(ctx, b.deps.HTTP, url, httputil.DefaultMaxBytes)
		return err
	})
	return data, err
}

// imageURLs returns the images attached to the command message, or those
// of the quoted message when the command has none.
func (b *Bot) imageURLs(ctx context.Context, ev *onebot.Event) []string {
	if urls := ev.Message.Images(); len(urls) > 0 {
		return urls
	}
	id, ok := ev.Message.ReplyID()
	if !ok {
		return nil
	}
	msg, err := b.deps.API.GetMsg(ctx, id)
	if err != nil {
		b.logger.Debug("cannot fetch quoted message", "message_id", id, "err", err)
		return nil
	}
	return msg.Message.Images()
}

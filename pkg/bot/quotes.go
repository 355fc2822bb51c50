package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/onebot"
	"github.com/yiyinbot/yiyin/pkg/quotes"
)

const quotesModule = "群友语录"

func (b *Bot) quoteCommands() []*Command {
	cmds := []*Command{
		{Name: "新增群友", Usage: "/新增群友 <群友昵称>", Help: "登记一位群友", Handler: b.handleAddMember},
		{Name: "新增别名", Usage: "/新增别名 <已有昵称> <别名>", Help: "为群友添加别名，之后可以用别名查找", Handler: b.handleAddAlias},
		{Name: "群友列表", Usage: "/群友列表", Help: "列出本群登记的群友、别名和语录数", Handler: b.handleListMembers},
		{Name: "上传", Usage: "/上传 <群友昵称> [图片或引用图片]", Help: "保存群友的语录截图，未登记的群友会自动登记", Handler: b.handleUpload},
		{Name: "截图上传", Usage: "/截图上传 <群友昵称>（引用消息）", Help: "把引用的消息生成聊天截图并保存为语录", Handler: b.handleScreenshotUpload},
		{Name: "查看", Usage: "/查看 <群友昵称>", Help: "随机查看一条该群友的语录", Handler: b.handleView},
		{Name: "随机群友", Usage: "/随机群友", Help: "从本群所有语录中随机抽一条", Handler: b.handleRandomQuote},
		{Name: "删除语录", Usage: "/删除语录 <ID>", Help: "删除一条语录（仅超级管理员）", Access: Superuser, Handler: b.handleDeleteQuote},
	}
	for _, c := range cmds {
		c.Module = quotesModule
		c.Feature = "quotes"
		c.GroupOnly = true
	}
	return cmds
}

func (b *Bot) book() (*quotes.Book, error) {
	if b.deps.Quotes == nil {
		return nil, errors.New(errors.ErrCodeNotConfigured, "语录功能未配置")
	}
	return b.deps.Quotes, nil
}

func (b *Bot) handleAddMember(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return b.reply(ctx, ev, "请输入群友昵称，例如：/新增群友 小明")
	}
	book, err := b.book()
	if err != nil {
		return err
	}
	if err := book.AddMember(ctx, ev.Group(), req.Args); err != nil {
		return err
	}
	return b.reply(ctx, ev, fmt.Sprintf("已成功添加群友「%s」✓", req.Args))
}

func (b *Bot) handleAddAlias(ctx context.Context, req *Request) error {
	ev := req.Event
	parts := strings.Fields(req.Args)
	if len(parts) < 2 {
		return b.reply(ctx, ev, "请输入已有昵称和新别名，例如：/新增别名 小明 明明")
	}
	book, err := b.book()
	if err != nil {
		return err
	}
	canonical, err := book.AddAlias(ctx, ev.Group(), parts[0], parts[1])
	if err != nil {
		return err
	}
	return b.reply(ctx, ev, fmt.Sprintf("已为群友「%s」添加别名「%s」✓", canonical, parts[1]))
}

func (b *Bot) handleListMembers(ctx context.Context, req *Request) error {
	ev := req.Event
	book, err := b.book()
	if err != nil {
		return err
	}
	members, err := book.Members(ctx, ev.Group())
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return b.reply(ctx, ev, "本群还没有记录任何群友，使用 /新增群友 <昵称> 来添加吧")
	}
	return b.reply(ctx, ev, "本群已记录的群友：\n"+formatMembers(members))
}

func formatMembers(members []quotes.Member) string {
	lines := make([]string, len(members))
	for i, m := range members {
		aliases := ""
		if len(m.Aliases) > 0 {
			aliases = "（" + strings.Join(m.Aliases, "、") + "）"
		}
		lines[i] = fmt.Sprintf("  %d. %s%s：%d条", i+1, m.Name, aliases, m.Count)
	}
	return strings.Join(lines, "\n")
}

func registeredPrefix(registered bool, name string) string {
	if registered {
		return fmt.Sprintf("群友「%s」已自动注册，", name)
	}
	return ""
}

func (b *Bot) handleUpload(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return b.reply(ctx, ev, "请输入群友昵称并附带图片，例如：/上传 小明 [图片]")
	}
	book, err := b.book()
	if err != nil {
		return err
	}
	if err := quotes.ValidateName(req.Args); err != nil {
		return err
	}
	urls := b.imageURLs(ctx, ev)
	if len(urls) == 0 {
		return b.reply(ctx, ev, "请在命令中附带图片或引用含图片的消息，例如：/上传 小明 [图片]")
	}

	var (
		ids        []string
		canonical  string
		registered bool
	)
	for _, data := range fetchAll(ctx, urls, downloadParallelism, b.download) {
		if data == nil {
			continue
		}
		q, reg, err := book.AddQuote(ctx, ev.Group(), req.Args, data)
		if err != nil {
			b.logger.Warn("cannot save quote", "group", ev.Group(), "member", req.Args, "err", err)
			continue
		}
		ids = append(ids, q.ID)
		canonical = q.Member
		registered = registered || reg
	}
	if len(ids) == 0 {
		return b.reply(ctx, ev, "图片下载失败，请稍后重试")
	}
	return b.reply(ctx, ev, fmt.Sprintf("%s已成功为群友「%s」保存 %d 张语录截图✓\n语录ID：%s",
		registeredPrefix(registered, canonical), canonical, len(ids), strings.Join(ids, "、")))
}

func (b *Bot) handleScreenshotUpload(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return b.reply(ctx, ev, "请输入群友昵称并引用一条消息，例如：/截图上传 小明（引用消息）")
	}
	book, err := b.book()
	if err != nil {
		return err
	}
	if b.deps.Screenshots == nil {
		return errors.New(errors.ErrCodeNotConfigured, "截图功能未配置")
	}
	replyID, ok := ev.Message.ReplyID()
	if !ok {
		return b.reply(ctx, ev, "请引用一条消息来生成截图，例如回复某条消息并输入：/截图上传 小明")
	}
	quoted, err := b.deps.API.GetMsg(ctx, replyID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "获取引用消息失败，请稍后重试")
	}
	text := b.quotedText(ctx, ev.GroupID, quoted.Message)
	if text == "" {
		return b.reply(ctx, ev, "引用的消息没有文字内容，无法生成截图")
	}

	senderID := quoted.Sender.UserID
	nickname := quoted.Sender.DisplayName()
	if info, err := b.deps.API.GetGroupMemberInfo(ctx, ev.GroupID, senderID); err == nil && info.DisplayName() != "" {
		nickname = info.DisplayName()
	}
	if nickname == "" {
		nickname = "群友"
	}
	var avatar []byte
	if b.deps.Avatars != nil {
		avatar = b.deps.Avatars.Fetch(ctx, strconv.FormatInt(senderID, 10))
	}

	img, err := b.pool.Render(ctx, "screenshot", func() ([]byte, error) {
		return b.deps.Screenshots.Render(avatar, nickname, text)
	})
	if err != nil {
		return err
	}
	q, registered, err := book.AddQuote(ctx, ev.Group(), req.Args, img)
	if err != nil {
		return err
	}
	return b.send(ctx, ev, onebot.Message{
		onebot.Text(fmt.Sprintf("%s已为群友「%s」生成并保存截图✓\n语录ID：%s\n",
			registeredPrefix(registered, q.Member), q.Member, q.ID)),
		onebot.Image(img),
	})
}

// quotedText flattens the text of a quoted message. Mentions become
// "@<card or nickname>".
func (b *Bot) quotedText(ctx context.Context, groupID int64, msg onebot.Message) string {
	var sb strings.Builder
	for _, seg := range msg {
		switch seg.Type {
		case onebot.SegText:
			sb.WriteString(seg.Str("text"))
		case onebot.SegAt:
			qq := seg.Str("qq")
			name := qq
			if uid, err := strconv.ParseInt(qq, 10, 64); err == nil {
				if info, err := b.deps.API.GetGroupMemberInfo(ctx, groupID, uid); err == nil && info.DisplayName() != "" {
					name = info.DisplayName()
				}
			}
			sb.WriteString("@" + name)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (b *Bot) handleView(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return b.reply(ctx, ev, "请输入群友昵称，例如：/查看 小明")
	}
	book, err := b.book()
	if err != nil {
		return err
	}
	q, data, err := book.Random(ctx, ev.Group(), req.Args)
	if err != nil {
		return err
	}
	return b.send(ctx, ev, onebot.Message{
		onebot.Text(fmt.Sprintf("群友「%s」的语录（ID：%s）：\n", q.Member, q.ID)),
		onebot.Image(data),
	})
}

func (b *Bot) handleRandomQuote(ctx context.Context, req *Request) error {
	ev := req.Event
	book, err := b.book()
	if err != nil {
		return err
	}
	q, data, err := book.RandomAny(ctx, ev.Group())
	if err != nil {
		return err
	}
	return b.send(ctx, ev, onebot.Message{
		onebot.Text(fmt.Sprintf("随机抽到了群友「%s」的语录（ID：%s）：\n", q.Member, q.ID)),
		onebot.Image(data),
	})
}

func (b *Bot) handleDeleteQuote(ctx context.Context, req *Request) error {
	ev := req.Event
	if req.Args == "" {
		return b.reply(ctx, ev, "请输入要删除的语录ID，例如：/删除语录 Ab3x9K")
	}
	book, err := b.book()
	if err != nil {
		return err
	}
	q, err := book.Delete(ctx, ev.Group(), req.Args)
	if err != nil {
		return err
	}
	return b.reply(ctx, ev, fmt.Sprintf("已删除群友「%s」的语录（ID：%s）✓", q.Member, q.ID))
}

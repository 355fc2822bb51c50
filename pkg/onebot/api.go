package onebot

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/integrations"
)

// API is the subset of OneBot actions the bot performs.
type API interface {
	SendGroupMsg(ctx context.Context, groupID int64, msg Message) (int64, error)
	SendPrivateMsg(ctx context.Context, userID int64, msg Message) (int64, error)
	SendGroupForwardMsg(ctx context.Context, groupID int64, nodes Message) error
	GetMsg(ctx context.Context, messageID int64) (*FetchedMessage, error)
	GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (*MemberInfo, error)
	GetLoginInfo(ctx context.Context) (*LoginInfo, error)
	SetMsgEmojiLike(ctx context.Context, messageID int64, emojiID string) error
}

// FetchedMessage is the result of get_msg.
type FetchedMessage struct {
	Time      int64   `json:"time"`
	MessageID int64   `json:"message_id"`
	Sender    Sender  `json:"sender"`
	Message   Message `json:"message"`
}

// MemberInfo is the result of get_group_member_info.
type MemberInfo struct {
	GroupID  int64  `json:"group_id"`
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
}

// DisplayName returns the card, or the nickname when the card is empty.
func (m MemberInfo) DisplayName() string {
	return Sender{Nickname: m.Nickname, Card: m.Card}.DisplayName()
}

// LoginInfo is the result of get_login_info.
type LoginInfo struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

type envelope struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Wording string          `json:"wording"`
}

// Client calls OneBot actions over HTTP: POST <base>/<action> with a JSON
// body and an optional bearer token.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a client for the action endpoint at baseURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	var headers map[string]string
	if token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}
	c := &Client{
		Client:  integrations.NewClient(nil, "", 0, headers),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if timeout > 0 {
		c.SetHTTPClient(&http.Client{Timeout: timeout})
	}
	return c
}

// Call performs action with params and decodes the data field into out
// (out may be nil).
func (c *Client) Call(ctx context.Context, action string, params, out any) error {
	if params == nil {
		params = struct{}{}
	}
	var env envelope
	if err := c.PostJSON(ctx, c.baseURL+"/"+action, nil, params, &env); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "onebot %s", action)
	}
	if env.Status == "failed" || env.Retcode != 0 {
		msg := env.Wording
		if msg == "" {
			msg = env.Message
		}
		return errors.New(errors.ErrCodeUpstream, "onebot %s: retcode %d: %s", action, env.Retcode, msg)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(errors.ErrCodeUpstream, err, "onebot %s: bad data", action)
	}
	return nil
}

type messageIDData struct {
	MessageID int64 `json:"message_id"`
}

// SendGroupMsg posts msg to a group and returns the new message ID.
func (c *Client) SendGroupMsg(ctx context.Context, groupID int64, msg Message) (int64, error) {
	var out messageIDData
	err := c.Call(ctx, "send_group_msg", map[string]any{"group_id": groupID, "message": msg}, &out)
	return out.MessageID, err
}

// SendPrivateMsg sends msg to a user and returns the new message ID.
func (c *Client) SendPrivateMsg(ctx context.Context, userID int64, msg Message) (int64, error) {
	var out messageIDData
	err := c.Call(ctx, "send_private_msg", map[string]any{"user_id": userID, "message": msg}, &out)
	return out.MessageID, err
}

// SendGroupForwardMsg posts a merged forward message built from nodes.
func (c *Client) SendGroupForwardMsg(ctx context.Context, groupID int64, nodes Message) error {
	return c.Call(ctx, "send_group_forward_msg", map[string]any{"group_id": groupID, "messages": nodes}, nil)
}

// GetMsg fetches a message by ID.
func (c *Client) GetMsg(ctx context.Context, messageID int64) (*FetchedMessage, error) {
	var out FetchedMessage
	if err := c.Call(ctx, "get_msg", map[string]any{"message_id": messageID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGroupMemberInfo looks up a member of a group.
func (c *Client) GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (*MemberInfo, error) {
	var out MemberInfo
	params := map[string]any{"group_id": groupID, "user_id": userID, "no_cache": false}
	if err := c.Call(ctx, "get_group_member_info", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLoginInfo returns the bot account.
func (c *Client) GetLoginInfo(ctx context.Context) (*LoginInfo, error) {
	var out LoginInfo
	if err := c.Call(ctx, "get_login_info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetMsgEmojiLike adds an emoji reaction to a message.
func (c *Client) SetMsgEmojiLike(ctx context.Context, messageID int64, emojiID string) error {
	return c.Call(ctx, "set_msg_emoji_like", map[string]any{"message_id": messageID, "emoji_id": emojiID}, nil)
}

var _ API = (*Client)(nil)

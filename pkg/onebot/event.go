package onebot

import (
	"encoding/json"
	"strconv"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

// Post and message types.
const (
	PostMessage   = "message"
	PostMetaEvent = "meta_event"

	MessageGroup   = "group"
	MessagePrivate = "private"
)

// Sender roles in a group.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Sender describes the author of a message.
type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card,omitempty"`
	Role     string `json:"role,omitempty"`
}

// DisplayName returns the group card, or the nickname when the card is
// empty.
func (s Sender) DisplayName() string {
	if s.Card != "" {
		return s.Card
	}
	return s.Nickname
}

// IsAdmin reports whether the sender owns or administers the group.
func (s Sender) IsAdmin() bool {
	return s.Role == RoleOwner || s.Role == RoleAdmin
}

// Event is a decoded OneBot event. Only the fields of message events are
// decoded; other post types keep their type fields.
type Event struct {
	Time        int64   `json:"time"`
	SelfID      int64   `json:"self_id"`
	PostType    string  `json:"post_type"`
	MessageType string  `json:"message_type,omitempty"`
	SubType     string  `json:"sub_type,omitempty"`
	MessageID   int64   `json:"message_id,omitempty"`
	UserID      int64   `json:"user_id,omitempty"`
	GroupID     int64   `json:"group_id,omitempty"`
	Message     Message `json:"message,omitempty"`
	RawMessage  string  `json:"raw_message,omitempty"`
	Sender      Sender  `json:"sender"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid event payload")
	}
	if ev.PostType == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "event has no post_type")
	}
	return &ev, nil
}

// IsGroupMessage reports whether ev is a message posted in a group.
func (ev *Event) IsGroupMessage() bool {
	return ev.PostType == PostMessage && ev.MessageType == MessageGroup
}

// IsPrivateMessage reports whether ev is a direct message.
func (ev *Event) IsPrivateMessage() bool {
	return ev.PostType == PostMessage && ev.MessageType == MessagePrivate
}

// Group returns the group ID as the string key used by the stores.
func (ev *Event) Group() string {
	if ev.GroupID == 0 {
		return ""
	}
	return strconv.FormatInt(ev.GroupID, 10)
}

// ToMe reports whether the message mentions the bot.
func (ev *Event) ToMe() bool {
	return ev.SelfID != 0 && ev.Message.Mentions(ev.SelfID)
}

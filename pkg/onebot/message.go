// Package onebot speaks the OneBot v11 protocol: message segments, event
// decoding, the HTTP action API and the webhook that receives events.
package onebot

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// Segment types used by the bot.
const (
	SegText  = "text"
	SegImage = "image"
	SegAt    = "at"
	SegFace  = "face"
	SegReply = "reply"
	SegNode  = "node"
)

// Segment is one element of an array-form message.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Str returns data[key] as a string. Implementations disagree on whether
// IDs are strings or numbers, so both are accepted.
func (s Segment) Str(key string) string {
	switch v := s.Data[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Message is an array of segments.
type Message []Segment

// UnmarshalJSON accepts the array form and, for implementations configured
// to post strings, the string form (kept as a single text segment).
func (m *Message) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Message{Text(s)}
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var segs []Segment
	if err := dec.Decode(&segs); err != nil {
		return err
	}
	*m = segs
	return nil
}

// Text builds a text segment.
func Text(s string) Segment {
	return Segment{Type: SegText, Data: map[string]any{"text": s}}
}

// Image builds an image segment carrying data inline as base64.
func Image(data []byte) Segment {
	return Segment{Type: SegImage, Data: map[string]any{
		"file": "base64://" + base64.StdEncoding.EncodeToString(data),
	}}
}

// ImageURL builds an image segment the implementation downloads itself.
func ImageURL(url string) Segment {
	return Segment{Type: SegImage, Data: map[string]any{"file": url}}
}

// At builds a mention of userID.
func At(userID int64) Segment {
	return Segment{Type: SegAt, Data: map[string]any{"qq": strconv.FormatInt(userID, 10)}}
}

// Face builds a QQ system face segment.
func Face(id string) Segment {
	return Segment{Type: SegFace, Data: map[string]any{"id": id}}
}

// Reply builds a segment quoting messageID.
func Reply(messageID int64) Segment {
	return Segment{Type: SegReply, Data: map[string]any{"id": strconv.FormatInt(messageID, 10)}}
}

// Node builds a forward-message node shown as sent by name (uin).
func Node(name string, uin int64, content Message) Segment {
	return Segment{Type: SegNode, Data: map[string]any{
		"name":    name,
		"uin":     strconv.FormatInt(uin, 10),
		"content": content,
	}}
}

// TextNodes wraps each text in its own forward node.
func TextNodes(name string, uin int64, texts ...string) Message {
	nodes := make(Message, 0, len(texts))
	for _, t := range texts {
		nodes = append(nodes, Node(name, uin, Message{Text(t)}))
	}
	return nodes
}

// PlainText concatenates the text segments and trims the result.
func (m Message) PlainText() string {
	var sb strings.Builder
	for _, s := range m {
		if s.Type == SegText {
			sb.WriteString(s.Str("text"))
		}
	}
	return strings.TrimSpace(sb.String())
}

// Images returns the download URLs of the image segments, falling back to
// the file field when no URL is present.
func (m Message) Images() []string {
	var out []string
	for _, s := range m {
		if s.Type != SegImage {
			continue
		}
		if u := s.Str("url"); u != "" {
			out = append(out, u)
		} else if f := s.Str("file"); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ReplyID returns the ID of the quoted message, if any.
func (m Message) ReplyID() (int64, bool) {
	for _, s := range m {
		if s.Type != SegReply {
			continue
		}
		id, err := strconv.ParseInt(s.Str("id"), 10, 64)
		if err == nil {
			return id, true
		}
	}
	return 0, false
}

// Mentions reports whether an at segment targets userID.
func (m Message) Mentions(userID int64) bool {
	want := strconv.FormatInt(userID, 10)
	for _, s := range m {
		if s.Type == SegAt && s.Str("qq") == want {
			return true
		}
	}
	return false
}

// MentionedUsers returns the numeric targets of at segments, skipping
// "all".
func (m Message) MentionedUsers() []int64 {
	var out []int64
	for _, s := range m {
		if s.Type != SegAt {
			continue
		}
		if id, err := strconv.ParseInt(s.Str("qq"), 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

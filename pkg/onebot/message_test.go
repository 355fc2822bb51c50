package onebot

import (
	"encoding/json"
	"strings"
	"testing"
)

const groupEvent = `{
 "time": 1700000000, "self_id": 10001, "post_type": "message",
 "message_type": "group", "sub_type": "normal", "message_id": 987654321,
 "user_id": 20002, "group_id": 30003,
 "message": [
  {"type": "reply", "data": {"id": "555"}},
  {"type": "at", "data": {"qq": "10001"}},
  {"type": "text", "data": {"text": " /对称 左 "}},
  {"type": "image", "data": {"file": "abc.image", "url": "https://img/1.png"}},
  {"type": "face", "data": {"id": 76}}
 ],
 "raw_message": "[CQ:reply,id=555]/对称 左",
 "sender": {"user_id": 20002, "nickname": "阿印", "card": "印印", "role": "admin"}
}`

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(groupEvent))
	if err != nil {
		t.Fatal(err)
	}
	if !ev.IsGroupMessage() || ev.IsPrivateMessage() {
		t.Errorf("type = %s/%s", ev.PostType, ev.MessageType)
	}
	if ev.Group() != "30003" || ev.MessageID != 987654321 {
		t.Errorf("group = %q, message_id = %d", ev.Group(), ev.MessageID)
	}
	if ev.Sender.DisplayName() != "印印" || !ev.Sender.IsAdmin() {
		t.Errorf("sender = %+v", ev.Sender)
	}
	if !ev.ToMe() {
		t.Error("ToMe = false")
	}
	if got := ev.Message.PlainText(); got != "/对称 左" {
		t.Errorf("PlainText = %q", got)
	}
	if id, ok := ev.Message.ReplyID(); !ok || id != 555 {
		t.Errorf("ReplyID = %d, %v", id, ok)
	}
	if imgs := ev.Message.Images(); len(imgs) != 1 || imgs[0] != "https://img/1.png" {
		t.Errorf("Images = %v", imgs)
	}
	if got := ev.Message[4].Str("id"); got != "76" {
		t.Errorf("numeric face id = %q", got)
	}
}

func TestParseEventErrors(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"post_type": "message", "message": 5}`} {
		if _, err := ParseEvent([]byte(body)); err == nil {
			t.Errorf("ParseEvent(%s) succeeded", body)
		}
	}
}

func TestMessageStringForm(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`"hello"`), &m); err != nil {
		t.Fatal(err)
	}
	if len(m) != 1 || m.PlainText() != "hello" {
		t.Errorf("message = %+v", m)
	}
	if err := json.Unmarshal([]byte(`null`), &m); err != nil || m != nil {
		t.Errorf("null = %+v, %v", m, err)
	}
}

func TestSegmentBuilders(t *testing.T) {
	img := Image([]byte("png"))
	if img.Str("file") != "base64://cG5n" {
		t.Errorf("image file = %q", img.Str("file"))
	}
	if At(42).Str("qq") != "42" || Reply(7).Str("id") != "7" || Face("76").Str("id") != "76" {
		t.Error("builder fields")
	}

	nodes := TextNodes("一印Bot", 10001, "a", "b")
	data, err := json.Marshal(nodes)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"type":"node"`, `"uin":"10001"`, `"name":"一印Bot"`, `"text":"b"`} {
		if !strings.Contains(s, want) {
			t.Errorf("forward nodes missing %s: %s", want, s)
		}
	}
}

func TestMentionedUsers(t *testing.T) {
	m := Message{At(1), Text("x"), {Type: SegAt, Data: map[string]any{"qq": "all"}}, At(2)}
	got := m.MentionedUsers()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("MentionedUsers = %v", got)
	}
	if !m.Mentions(2) || m.Mentions(3) {
		t.Error("Mentions")
	}
}

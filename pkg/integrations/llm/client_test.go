package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		var req completionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "m" || req.MaxTokens != 150 || len(req.Messages) != 2 || req.Stream {
			t.Errorf("request = %+v", req)
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"嗯。"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "sk-test", 0)
	c.SetHTTPClient(srv.Client())

	msgs := []Message{{RoleSystem, "你是37"}, {RoleUser, "小明：你好"}}
	got, err := c.Chat(context.Background(), msgs, Options{Model: "m", MaxTokens: 150, Temperature: 0.85})
	if err != nil || got != "嗯。" {
		t.Errorf("Chat = %q, %v", got, err)
	}
}

func TestChatErrors(t *testing.T) {
	if _, err := NewClient("", "", 0).Chat(context.Background(), nil, DefaultOptions()); !errors.Is(err, errors.ErrCodeNotConfigured) {
		t.Errorf("no key: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 0)
	c.SetHTTPClient(srv.Client())
	if _, err := c.Chat(context.Background(), nil, DefaultOptions()); !errors.Is(err, errors.ErrCodeUpstream) {
		t.Errorf("empty choices: %v", err)
	}
}

func TestChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 0)
	c.SetHTTPClient(srv.Client())
	if _, err := c.Chat(context.Background(), nil, DefaultOptions()); !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("401: %v", err)
	}
}

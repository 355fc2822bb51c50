package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type recorder struct {
	Noop
	mu     sync.Mutex
	events []string
}

func (r *recorder) OnEvent(_ context.Context, postType, group string) {
	r.mu.Lock()
	r.events = append(r.events, postType+"@"+group)
	r.mu.Unlock()
}

func TestRegistryDefaultsAndReset(t *testing.T) {
	Reset()
	ctx := context.Background()

	// No-op defaults must be callable.
	Bot().OnEvent(ctx, "message", "1")
	Bot().OnRenderComplete(ctx, "screenshot", 10, time.Millisecond, nil)
	Cache().OnCacheSet(ctx, "avatar", 10)
	HTTP().OnError(ctx, "GET", "q1.qlogo.cn", "/g", nil)

	rec := &recorder{}
	SetBotHooks(rec)
	SetCacheHooks(rec)
	SetHTTPHooks(rec)
	if Bot() != rec || Cache() != rec || HTTP() != rec {
		t.Fatal("registered hooks not returned")
	}

	Bot().OnEvent(ctx, "message", "123")
	Bot().OnEvent(ctx, "notice", "")
	if got := strings.Join(rec.events, ","); got != "message@123,notice@" {
		t.Errorf("events = %q", got)
	}

	Reset()
	if _, ok := Bot().(Noop); !ok {
		t.Error("Reset should restore the no-op hooks")
	}
}

func TestSetNilIsIgnored(t *testing.T) {
	defer Reset()
	rec := &recorder{}
	SetBotHooks(rec)
	SetBotHooks(nil)
	SetCacheHooks(nil)
	SetHTTPHooks(nil)
	if Bot() != rec {
		t.Error("nil replaced the bot hooks")
	}
	if _, ok := Cache().(Noop); !ok {
		t.Error("nil replaced the cache hooks")
	}
}

func TestLogHooks(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})).Register()

	ctx := context.Background()
	Bot().OnEvent(ctx, "message", "42")
	Bot().OnCommand(ctx, "对称", "42", 5*time.Millisecond, nil)
	Bot().OnRenderComplete(ctx, "symmetric", 0, time.Millisecond, errors.New("boom"))
	Cache().OnCacheHit(ctx, "translate")
	HTTP().OnResponse(ctx, "GET", "q1.qlogo.cn", "/g", 200, time.Millisecond)

	out := buf.String()
	for _, want := range []string{"event", "type=message", "对称", "render failed", "boom", "cache hit", "q1.qlogo.cn"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooksQuietAtInfo(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})).Register()

	ctx := context.Background()
	Bot().OnEvent(ctx, "message", "42")
	Cache().OnCacheMiss(ctx, "wolfram")
	if buf.Len() != 0 {
		t.Errorf("debug hooks leaked at info level: %q", buf.String())
	}

	HTTP().OnError(ctx, "POST", "tmt.tencentcloudapi.com", "/", errors.New("reset"))
	if !strings.Contains(buf.String(), "http error") {
		t.Errorf("errors should log at warn: %q", buf.String())
	}
}

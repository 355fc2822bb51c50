package bot

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/yiyinbot/yiyin/pkg/config"
	"github.com/yiyinbot/yiyin/pkg/onebot"
)

func newMoheBot(t *testing.T, texts string, images map[string][]byte, enable bool) (*Bot, *fakeAPI, *[]time.Duration) {
	t.Helper()
	dir := t.TempDir()
	list := filepath.Join(dir, "mohe.json")
	imageDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if texts != "" {
		if err := os.WriteFile(list, []byte(texts), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range images {
		if err := os.WriteFile(filepath.Join(imageDir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	b, api := newTestBot(t, func(cfg *config.Config, _ *Deps) {
		cfg.Mohe.ListFile = list
		cfg.Mohe.ImageDir = imageDir
	})
	var pauses []time.Duration
	b.sleep = func(d time.Duration) { pauses = append(pauses, d) }
	if enable {
		if _, err := b.deps.Toggles.Enable(context.Background(), "30003", "摩诃"); err != nil {
			t.Fatal(err)
		}
	}
	return b, api, &pauses
}

func TestMoheDisabledByDefault(t *testing.T) {
	b, api, _ := newMoheBot(t, `["摩诃"]`, nil, false)
	b.HandleEvent(context.Background(), groupMsg("/随机摩诃"))
	if got := api.lastText(t); got != "摩诃功能未启用，请管理员使用 /启用 摩诃 开启" {
		t.Errorf("reply = %q", got)
	}
	if api.count() != 1 {
		t.Errorf("sent %d messages", api.count())
	}
}

func TestMohePostsDistinctItems(t *testing.T) {
	img := pngBytes(t, 2, 2)
	b, api, pauses := newMoheBot(t, `["甲", "乙", " "]`, map[string][]byte{"one.png": img, "skip.txt": []byte("x")}, true)

	b.HandleEvent(context.Background(), groupMsg("/随机摩诃"))

	// Three usable items and a draw of at least three: everything is posted once.
	if api.count() != 3 {
		t.Fatalf("sent %d messages: %q", api.count(), api.texts())
	}
	var texts []string
	images := 0
	api.mu.Lock()
	for _, s := range api.sent {
		if s.group != groupID {
			t.Errorf("sent to group %d", s.group)
		}
		if s.msg[0].Type == onebot.SegImage {
			images++
			continue
		}
		texts = append(texts, s.msg.PlainText())
	}
	api.mu.Unlock()
	sort.Strings(texts)
	if images != 1 || strings.Join(texts, ",") != "乙,甲" {
		t.Errorf("texts = %q, images = %d", texts, images)
	}

	if len(*pauses) != 2 {
		t.Fatalf("pauses = %v, want one between each pair", *pauses)
	}
	for _, d := range *pauses {
		if d < time.Second || d > 3*time.Second {
			t.Errorf("pause %v outside 1-3s", d)
		}
	}
}

func TestMoheSampleSize(t *testing.T) {
	b, api, _ := newMoheBot(t, `["1","2","3","4","5","6","7","8","9","10"]`, nil, true)
	for range 20 {
		before := api.count()
		b.HandleEvent(context.Background(), groupMsg("/随机摩诃"))
		n := api.count() - before
		if n < 3 || n > 5 {
			t.Fatalf("posted %d items, want 3-5", n)
		}
		seen := map[string]bool{}
		for _, text := range api.texts()[before:] {
			if seen[text] {
				t.Fatalf("item %q posted twice in one draw", text)
			}
			seen[text] = true
		}
	}
}

func TestMoheEmptyCollection(t *testing.T) {
	b, api, _ := newMoheBot(t, "", nil, true)
	b.HandleEvent(context.Background(), groupMsg("/随机摩诃"))
	if got := api.lastText(t); got != "还没有摩诃语录" {
		t.Errorf("reply = %q", got)
	}
}

func TestMoheGroupOnly(t *testing.T) {
	b, api, _ := newMoheBot(t, `["摩诃"]`, nil, true)
	b.HandleEvent(context.Background(), privateMsg("/随机摩诃"))
	if api.count() != 0 {
		t.Errorf("private chat answered: %q", api.texts())
	}
}

package mohe

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "mohe.json")
	images := filepath.Join(dir, "images")
	if err := os.MkdirAll(filepath.Join(images, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, list, `["摩诃无量", "  ", "", "般若波罗蜜"]`)
	writeFile(t, filepath.Join(images, "b.PNG"), "x")
	writeFile(t, filepath.Join(images, "a.gif"), "x")
	writeFile(t, filepath.Join(images, "notes.txt"), "x")

	c, err := Load(list, images)
	if err != nil {
		t.Fatal(err)
	}
	want := []Item{
		{Text: "摩诃无量"},
		{Text: "般若波罗蜜"},
		{Image: filepath.Join(images, "a.gif")},
		{Image: filepath.Join(images, "b.PNG")},
	}
	if c.Len() != len(want) {
		t.Fatalf("items = %+v", c.items)
	}
	for i, it := range want {
		if c.items[i] != it {
			t.Errorf("item %d = %+v, want %+v", i, c.items[i], it)
		}
	}
	if c.items[0].IsImage() || !c.items[2].IsImage() {
		t.Error("IsImage mismatch")
	}
}

func TestLoadMissingSources(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, "none.json"), filepath.Join(dir, "none"))
	if err != nil {
		t.Fatalf("missing sources should load empty: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestLoadBadList(t *testing.T) {
	list := filepath.Join(t.TempDir(), "mohe.json")
	writeFile(t, list, `{"not": "a list"}`)
	if _, err := Load(list, ""); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	c := &Collection{}
	for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
		c.items = append(c.items, Item{Text: s})
	}
	rng := rand.New(rand.NewPCG(1, 2))

	tests := []struct{ n, want int }{{3, 3}, {5, 5}, {10, 6}, {0, 0}, {-1, 0}}
	for _, tt := range tests {
		got := c.Sample(rng, tt.n)
		if len(got) != tt.want {
			t.Errorf("Sample(%d) len = %d, want %d", tt.n, len(got), tt.want)
		}
		seen := map[string]bool{}
		for _, it := range got {
			if seen[it.Text] {
				t.Errorf("Sample(%d) repeated %q", tt.n, it.Text)
			}
			seen[it.Text] = true
		}
	}
}

func TestCountAndPauseBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for range 200 {
		if n := Count(rng); n < MinItems || n > MaxItems {
			t.Fatalf("Count = %d", n)
		}
		if d := Pause(rng); d < time.Second || d > 3*time.Second {
			t.Fatalf("Pause = %v", d)
		}
	}
}

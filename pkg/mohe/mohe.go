// Package mohe holds the 摩诃 collection: short texts from a JSON list of
// strings plus the images found in a directory. The bot draws a few items
// at a time without repeats and posts them one by one.
//
//	c, err := mohe.Load("mohe.json", "images/mohe")
//	for _, item := range c.Sample(nil, mohe.Count(nil)) { ... }
package mohe

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

// Items per draw and the pause between two posted items.
const (
	MinItems = 3
	MaxItems = 5

	MinPause = time.Second
	MaxPause = 3 * time.Second
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// Item is either a text or the path of an image file.
type Item struct {
	Text  string
	Image string
}

// IsImage reports whether the item is an image.
func (i Item) IsImage() bool { return i.Image != "" }

// Collection is the loaded pool of items, texts first, then images sorted
// by file name.
type Collection struct {
	items []Item
}

// Load reads the text list at listPath and the images in imageDir. Either
// may be missing; a list that is not a JSON array of strings is an error.
// Blank texts are skipped.
func Load(listPath, imageDir string) (*Collection, error) {
	c := &Collection{}

	if listPath != "" {
		data, err := os.ReadFile(listPath)
		switch {
		case err == nil:
			var texts []string
			if err := json.Unmarshal(data, &texts); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "摩诃语录文件格式错误")
			}
			for _, t := range texts {
				if strings.TrimSpace(t) != "" {
					c.items = append(c.items, Item{Text: t})
				}
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "无法读取摩诃语录")
		}
	}

	if imageDir != "" {
		entries, err := os.ReadDir(imageDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "无法读取摩诃图片目录")
		}
		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			c.items = append(c.items, Item{Image: filepath.Join(imageDir, e.Name())})
		}
	}
	return c, nil
}

// Len returns the number of items.
func (c *Collection) Len() int { return len(c.items) }

// Sample returns min(n, Len()) distinct items in random order. A nil rng
// uses the global source.
func (c *Collection) Sample(rng *rand.Rand, n int) []Item {
	n = min(max(n, 0), len(c.items))
	var perm []int
	if rng == nil {
		perm = rand.Perm(len(c.items))
	} else {
		perm = rng.Perm(len(c.items))
	}
	out := make([]Item, n)
	for i := range n {
		out[i] = c.items[perm[i]]
	}
	return out
}

// Count returns how many items one draw posts, in [MinItems, MaxItems].
func Count(rng *rand.Rand) int {
	return MinItems + intN(rng, MaxItems-MinItems+1)
}

// Pause returns the wait before the next item, in [MinPause, MaxPause].
func Pause(rng *rand.Rand) time.Duration {
	return MinPause + time.Duration(int64N(rng, int64(MaxPause-MinPause)+1))
}

func intN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}

func int64N(rng *rand.Rand, n int64) int64 {
	if rng == nil {
		return rand.Int64N(n)
	}
	return rng.Int64N(n)
}

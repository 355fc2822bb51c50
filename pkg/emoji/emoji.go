// Package emoji resolves emoji reactions for QQ messages.
//
// The embedded catalog lists QQ system faces (Type 1) and Unicode emoji
// (Type 2) by the ID that set_msg_emoji_like expects. Any numeric ID is
// accepted even when the catalog does not list it.
package emoji

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

//go:embed catalog.json
var catalogJSON []byte

// Entry types.
const (
	TypeQQ      = 1
	TypeUnicode = 2
)

// Entry is one catalogued emoji.
type Entry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
	Type  int    `json:"type"`
}

// String formats the entry for list output, e.g. "[QQ] 赞  (ID: 76)".
func (e Entry) String() string {
	tag := "QQ"
	if e.Type == TypeUnicode {
		tag = "Emoji"
	}
	display := ""
	if e.Emoji != "" {
		display = e.Emoji + " "
	}
	return fmt.Sprintf("[%s] %s%s  (ID: %s)", tag, display, e.Name, e.ID)
}

// Catalog indexes entries by ID, name and emoji.
type Catalog struct {
	entries []Entry
	byID    map[string]Entry
	byName  map[string]Entry
	byEmoji map[string]Entry
}

// NewCatalog indexes entries. Later duplicates do not replace earlier ones.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{
		entries: entries,
		byID:    make(map[string]Entry, len(entries)),
		byName:  make(map[string]Entry, len(entries)),
		byEmoji: make(map[string]Entry),
	}
	for _, e := range entries {
		addOnce(c.byID, e.ID, e)
		addOnce(c.byName, e.Name, e)
		if e.Emoji != "" {
			addOnce(c.byEmoji, e.Emoji, e)
		}
	}
	return c
}

func addOnce(m map[string]Entry, k string, e Entry) {
	if _, ok := m[k]; !ok {
		m[k] = e
	}
}

var defaultCatalog = func() *Catalog {
	var entries []Entry
	if err := json.Unmarshal(catalogJSON, &entries); err != nil {
		panic(fmt.Sprintf("emoji: embedded catalog: %v", err))
	}
	return NewCatalog(entries)
}()

// Default returns the embedded catalog.
func Default() *Catalog { return defaultCatalog }

// Entries returns all entries in catalog order.
func (c *Catalog) Entries() []Entry { return c.entries }

// ByType returns the entries of type t.
func (c *Catalog) ByType(t int) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Resolve maps a name, an emoji character, a catalogued ID or any decimal
// number to an emoji ID.
func (c *Catalog) Resolve(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if e, ok := c.byName[text]; ok {
		return e.ID, true
	}
	if e, ok := c.byEmoji[text]; ok {
		return e.ID, true
	}
	if e, ok := c.byID[text]; ok {
		return e.ID, true
	}
	if isDigits(text) {
		return text, true
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Sample returns n distinct random IDs in [1, maxID]. n is clamped to
// [0, maxCount] and to maxID.
func Sample(rng *rand.Rand, n, maxCount, maxID int) []string {
	n = min(n, maxCount, maxID)
	if n <= 0 {
		return nil
	}
	perm := permN(rng, maxID)
	out := make([]string, n)
	for i := range n {
		out[i] = strconv.Itoa(perm[i] + 1)
	}
	return out
}

func permN(rng *rand.Rand, n int) []int {
	if rng == nil {
		return rand.Perm(n)
	}
	return rng.Perm(n)
}

// RandomID returns a random face ID in [1, maxID].
func RandomID(rng *rand.Rand, maxID int) int {
	if maxID < 1 {
		maxID = 1
	}
	if rng == nil {
		return rand.IntN(maxID) + 1
	}
	return rng.IntN(maxID) + 1
}

// Pages splits the catalog into text pages of at most chunk entries each:
// a summary page, then QQ faces, then Unicode emoji.
func (c *Catalog) Pages(chunk int) []string {
	if chunk < 1 {
		chunk = 30
	}
	qq := c.ByType(TypeQQ)
	uni := c.ByType(TypeUnicode)

	pages := []string{fmt.Sprintf(
		"「贴表情」可用表情一览\n"+
			"━━━━━━━━━━━━━━━\n"+
			"用法：\n"+
			"  /贴 <ID/含义/emoji> [引用消息]\n"+
			"  /贴<数字>个 [引用消息]  → 随机贴N个\n"+
			"━━━━━━━━━━━━━━━\n"+
			"未收录的ID也可以直接用 /贴 <ID> 尝试\n"+
			"━━━━━━━━━━━━━━━\n"+
			"已收录 %d 个表情 (QQ系统: %d, Emoji: %d)",
		len(c.entries), len(qq), len(uni))}

	pages = append(pages, chunkPages("QQ系统表情", qq, chunk)...)
	pages = append(pages, chunkPages("Emoji表情", uni, chunk)...)
	return pages
}

func chunkPages(title string, entries []Entry, chunk int) []string {
	var pages []string
	for i := 0; i < len(entries); i += chunk {
		part := entries[i:min(i+chunk, len(entries))]
		lines := []string{fmt.Sprintf("📦 %s (%d-%d)", title, i+1, i+len(part)), ""}
		for _, e := range part {
			lines = append(lines, e.String())
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

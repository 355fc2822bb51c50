// Package tarot draws a card from the 22 major arcana.
//
// Card texts are embedded. Card images are read from a directory holding
// <id>.png; a reversed draw is rotated by 180 degrees.
package tarot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

//go:embed cards.json
var cardsJSON []byte

// Card is one major arcana card.
type Card struct {
	ID       int    `json:"id"`
	NameZh   string `json:"name_zh"`
	NameEn   string `json:"name_en"`
	Upright  string `json:"upright"`
	Reversed string `json:"reversed"`
}

// Deck holds the 22 major arcana ordered by ID.
var Deck = mustLoad()

func mustLoad() []Card {
	var cards []Card
	if err := json.Unmarshal(cardsJSON, &cards); err != nil {
		panic(fmt.Sprintf("tarot: embedded cards: %v", err))
	}
	return cards
}

// Reading is a drawn card and its orientation.
type Reading struct {
	Card    Card
	Upright bool
}

// Orientation returns 正位 or 逆位.
func (d Reading) Orientation() string {
	if d.Upright {
		return "正位"
	}
	return "逆位"
}

// Meaning returns the meaning for the drawn orientation.
func (d Reading) Meaning() string {
	if d.Upright {
		return d.Card.Upright
	}
	return d.Card.Reversed
}

// Title formats the card line, e.g. "【0】愚者 （The Fool）".
func (d Reading) Title() string {
	return fmt.Sprintf("【%d】%s （%s）", d.Card.ID, d.Card.NameZh, d.Card.NameEn)
}

// Draw picks a uniformly random card and orientation. A nil rng uses the
// global source.
func Draw(rng *rand.Rand) Reading {
	if rng == nil {
		return Reading{Card: Deck[rand.IntN(len(Deck))], Upright: rand.IntN(2) == 0}
	}
	return Reading{Card: Deck[rng.IntN(len(Deck))], Upright: rng.IntN(2) == 0}
}

// RenderCard loads the card image from dir and returns it as PNG, rotated
// 180 degrees for a reversed draw.
func RenderCard(dir string, d Reading) ([]byte, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeNotConfigured, "tarot image directory not configured")
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.png", d.Card.ID))
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "card image %s", path)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "cannot decode %s", path)
	}
	if !d.Upright {
		img = imaging.Rotate180(img)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "cannot encode card")
	}
	return buf.Bytes(), nil
}

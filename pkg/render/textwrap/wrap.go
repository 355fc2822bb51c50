// Package textwrap measures and wraps text by rendered pixel width.
//
// Text is laid out in visual clusters (extended grapheme clusters), so an
// emoji sequence joined by zero-width joiners or followed by a variation
// selector is measured and wrapped as one unit. The width of a cluster is
// the advance of its first visible codepoint; codepoints the font cannot
// render are measured with a caller-supplied fallback width.
//
// Wrapping splits on explicit line breaks first, keeping empty paragraphs,
// then fills each paragraph greedily:
//
//	m := textwrap.NewMeasurer(face, 32)
//	lines := textwrap.Wrap("a\n\nb", m, 600) // "a", "", "b"
package textwrap

import (
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Codepoints that occupy no horizontal space.
const (
	zwj  = '\u200d'
	vs15 = '\ufe0e'
	vs16 = '\ufe0f'

	tagFirst = '\U000E0020'
	tagLast  = '\U000E007F'
)

// IsZeroWidth reports whether r is a joiner, presentation selector or emoji
// tag character.
func IsZeroWidth(r rune) bool {
	switch r {
	case zwj, vs15, vs16:
		return true
	}
	return r >= tagFirst && r <= tagLast
}

// Line is one wrapped display line and its measured width in pixels.
type Line struct {
	Text  string
	Width float64
}

// Measurer computes pixel widths with a font face.
// A Measurer wraps a face and is not safe for concurrent use.
type Measurer struct {
	face     font.Face
	fallback float64
}

// NewMeasurer returns a Measurer over face. fallback is the width used for
// codepoints above U+00FF that the face cannot render.
func NewMeasurer(face font.Face, fallback float64) *Measurer {
	return &Measurer{face: face, fallback: fallback}
}

// RuneWidth returns the advance of a single codepoint.
func (m *Measurer) RuneWidth(r rune) float64 {
	if IsZeroWidth(r) {
		return 0
	}
	adv, ok := m.face.GlyphAdvance(r)
	w := fixedToFloat(adv)
	if (!ok || w < 1) && r > 0xFF {
		return m.fallback
	}
	if !ok {
		return 0
	}
	return w
}

// ClusterWidth returns the width of one visual cluster: the width of its
// first codepoint that is not zero-width, or 0 if every codepoint is.
func (m *Measurer) ClusterWidth(cluster string) float64 {
	for _, r := range cluster {
		if IsZeroWidth(r) {
			continue
		}
		return m.RuneWidth(r)
	}
	return 0
}

// Renderable reports whether the face has a glyph for the cluster's first
// visible codepoint. Clusters measured with the fallback width are not
// renderable.
func (m *Measurer) Renderable(cluster string) bool {
	for _, r := range cluster {
		if IsZeroWidth(r) {
			continue
		}
		adv, ok := m.face.GlyphAdvance(r)
		return ok && (fixedToFloat(adv) >= 1 || r <= 0xFF)
	}
	return true
}

// Width returns the measured width of s.
func (m *Measurer) Width(s string) float64 {
	var w float64
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w += m.ClusterWidth(g.Str())
	}
	return w
}

// Clusters splits s into visual clusters.
func Clusters(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// Wrap splits text into lines no wider than maxWidth. A cluster wider than
// maxWidth on its own gets a line to itself. The result always holds at
// least one line.
func Wrap(text string, m *Measurer, maxWidth float64) []Line {
	var lines []Line
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(paragraph, m, maxWidth)...)
	}
	if len(lines) == 0 {
		return []Line{{}}
	}
	return lines
}

func wrapParagraph(paragraph string, m *Measurer, maxWidth float64) []Line {
	if paragraph == "" {
		return []Line{{}}
	}

	var (
		lines []Line
		buf   strings.Builder
		cur   float64
	)
	g := uniseg.NewGraphemes(paragraph)
	for g.Next() {
		cluster := g.Str()
		w := m.ClusterWidth(cluster)
		if cur+w > maxWidth && buf.Len() > 0 {
			lines = append(lines, Line{Text: buf.String(), Width: cur})
			buf.Reset()
			cur = 0
		}
		buf.WriteString(cluster)
		cur += w
	}
	if buf.Len() > 0 {
		lines = append(lines, Line{Text: buf.String(), Width: cur})
	}
	return lines
}

// Strings returns the text of each line.
func Strings(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// MaxWidth returns the widest line width.
func MaxWidth(lines []Line) float64 {
	var w float64
	for _, l := range lines {
		w = max(w, l.Width)
	}
	return w
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

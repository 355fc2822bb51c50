// Package screenshot renders a single chat message as an image that looks
// like a group-chat screenshot: round avatar on the left, nickname above a
// rounded speech bubble, and the message text wrapped inside the bubble.
//
// Rendering is a pure function of the avatar bytes, nickname and text; a
// Renderer only holds the font source and layout options and can be shared
// between goroutines.
//
//	r := screenshot.New()
//	png, err := r.Render(avatar, "小明", "今天吃什么")
package screenshot

import (
	"bytes"
	"image"
	"image/color"
	"strings"

	// Avatar formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	_ "golang.org/x/image/webp"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/fonts"
	"github.com/yiyinbot/yiyin/pkg/render/textwrap"
)

// Style holds the colors and metrics of the rendered screenshot.
type Style struct {
	CanvasWidth int

	Background color.NRGBA
	Bubble     color.NRGBA
	Nickname   color.NRGBA
	Text       color.NRGBA
	Avatar     color.NRGBA // placeholder fill when the avatar cannot be decoded

	AvatarSize int
	AvatarX    int
	MessageX   int

	BubblePadH   int
	BubblePadV   int
	BubbleRadius float64

	NickFontSize float64
	TextFontSize float64

	LineGap      int
	MaxTextWidth float64
	TopPad       int
	BottomPad    int
	NickGap      int // space between nickname and bubble
}

// DefaultStyle returns the QQ-like layout used by the quotes plugin.
func DefaultStyle() Style {
	return Style{
		CanvasWidth:  900,
		Background:   color.NRGBA{241, 241, 241, 255},
		Bubble:       color.NRGBA{255, 255, 255, 255},
		Nickname:     color.NRGBA{149, 149, 149, 255},
		Text:         color.NRGBA{17, 17, 17, 255},
		Avatar:       color.NRGBA{200, 200, 200, 255},
		AvatarSize:   85,
		AvatarX:      50,
		MessageX:     155,
		BubblePadH:   22,
		BubblePadV:   18,
		BubbleRadius: 15,
		NickFontSize: 22,
		TextFontSize: 32,
		LineGap:      8,
		MaxTextWidth: 600,
		TopPad:       30,
		BottomPad:    30,
		NickGap:      10,
	}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle replaces the default style.
func WithStyle(s Style) Option {
	return func(r *Renderer) { r.style = s }
}

// WithFonts sets the font source (default [fonts.Default]).
func WithFonts(src fonts.Source) Option {
	return func(r *Renderer) { r.fonts = src }
}

// Renderer draws chat screenshots. It is safe for concurrent use.
type Renderer struct {
	style Style
	fonts fonts.Source
}

// New creates a Renderer with the default style and fonts.
func New(opts ...Option) *Renderer {
	r := &Renderer{style: DefaultStyle()}
	for _, opt := range opts {
		opt(r)
	}
	if r.fonts == nil {
		r.fonts = fonts.Default()
	}
	return r
}

// Style returns the renderer's style.
func (r *Renderer) Style() Style { return r.style }

// Layout is the computed geometry of one screenshot.
type Layout struct {
	Lines []textwrap.Line

	// Nick is the nickname as drawn, shortened with an ellipsis when it
	// would run past the right margin.
	Nick      string
	NickWidth float64

	LineHeight int
	NickHeight int

	BubbleX, BubbleY int
	BubbleW, BubbleH int

	Width, Height int
}

// faces bundles the per-call font faces and the measurer built on them.
type faces struct {
	nick     font.Face
	text     font.Face
	nickM    *textwrap.Measurer
	measurer *textwrap.Measurer
}

func (r *Renderer) newFaces() faces {
	nick := r.fonts.Face(r.style.NickFontSize)
	text := r.fonts.Face(r.style.TextFontSize)
	return faces{
		nick:     nick,
		text:     text,
		nickM:    textwrap.NewMeasurer(nick, r.style.NickFontSize),
		measurer: textwrap.NewMeasurer(text, r.style.TextFontSize),
	}
}

// Layout computes the screenshot geometry without drawing.
func (r *Renderer) Layout(nickname, text string) Layout {
	return r.layout(r.newFaces(), nickname, text)
}

func (r *Renderer) layout(f faces, nickname, text string) Layout {
	s := r.style
	nick, nickW := fitWidth(f.nickM, nickname, float64(s.CanvasWidth-s.MessageX-s.AvatarX))
	lines := textwrap.Wrap(text, f.measurer, s.MaxTextWidth)

	lineH := faceHeight(f.text)
	nickH := faceHeight(f.nick)

	maxLineW := textwrap.MaxWidth(lines)
	if maxLineW == 0 {
		// An all-empty message still gets a bubble one space wide.
		maxLineW = f.measurer.Width(" ")
	}

	n := len(lines)
	blockH := lineH*n + s.LineGap*max(n-1, 0)

	l := Layout{
		Lines:      lines,
		Nick:       nick,
		NickWidth:  nickW,
		LineHeight: lineH,
		NickHeight: nickH,
		BubbleX:    s.MessageX,
		BubbleY:    s.TopPad + nickH + s.NickGap,
		BubbleW:    int(maxLineW) + s.BubblePadH*2,
		BubbleH:    blockH + s.BubblePadV*2,
		Width:      s.CanvasWidth,
	}
	l.Height = max(l.BubbleY+l.BubbleH+s.BottomPad, s.AvatarSize+s.TopPad+s.BottomPad)
	return l
}

// Render draws the screenshot and encodes it as PNG. Invalid or empty
// avatar bytes are replaced by a gray circle; no input makes Render fail
// except a PNG encoding error.
func (r *Renderer) Render(avatar []byte, nickname, text string) ([]byte, error) {
	img := r.Draw(avatar, nickname, text)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "cannot encode screenshot")
	}
	return buf.Bytes(), nil
}

// Draw renders the screenshot to an image.
func (r *Renderer) Draw(avatar []byte, nickname, text string) image.Image {
	s := r.style
	f := r.newFaces()
	l := r.layout(f, nickname, text)

	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(s.Background)
	dc.Clear()

	dc.DrawImage(circleAvatar(avatar, s.AvatarSize, s.Avatar), s.AvatarX, s.TopPad)

	bx, by := float64(l.BubbleX), float64(l.BubbleY)
	dc.SetColor(s.Bubble)
	dc.DrawRoundedRectangle(bx, by, float64(l.BubbleW), float64(l.BubbleH), s.BubbleRadius)
	dc.Fill()

	ty := by + 15
	dc.MoveTo(bx, ty)
	dc.LineTo(bx-10, ty+8)
	dc.LineTo(bx, ty+16)
	dc.ClosePath()
	dc.Fill()

	dc.SetFontFace(f.nick)
	drawClusters(dc, f.nickM, l.Nick, float64(s.MessageX), float64(s.TopPad), f.nick, s.Nickname)

	dc.SetFontFace(f.text)
	x := bx + float64(s.BubblePadH)
	y := by + float64(s.BubblePadV)
	for _, line := range l.Lines {
		if line.Text != "" {
			drawClusters(dc, f.measurer, line.Text, x, y, f.text, s.Text)
		}
		y += float64(l.LineHeight + s.LineGap)
	}
	return dc.Image()
}

// ellipsis ends a nickname cut by [fitWidth].
const ellipsis = "…"

// fitWidth returns s unchanged when it fits in limit, otherwise its longest
// cluster prefix that still fits with an ellipsis appended.
func fitWidth(m *textwrap.Measurer, s string, limit float64) (string, float64) {
	if w := m.Width(s); w <= limit {
		return s, w
	}
	room := limit - m.Width(ellipsis)
	var b strings.Builder
	w := 0.0
	for _, cluster := range textwrap.Clusters(s) {
		cw := m.ClusterWidth(cluster)
		if w+cw > room {
			break
		}
		b.WriteString(cluster)
		w += cw
	}
	b.WriteString(ellipsis)
	return b.String(), w + m.Width(ellipsis)
}

// drawClusters draws s with its top-left corner at (x, top), placing each
// visual cluster at its measured offset so drawing matches the layout.
// Clusters the face has no glyph for are drawn as hollow boxes of the
// fallback width.
func drawClusters(dc *gg.Context, m *textwrap.Measurer, s string, x, top float64, face font.Face, c color.Color) {
	metrics := face.Metrics()
	ascent := float64(metrics.Ascent.Ceil())
	baseline := top + ascent

	dc.SetColor(c)
	for _, cluster := range textwrap.Clusters(s) {
		w := m.ClusterWidth(cluster)
		if w == 0 {
			continue
		}
		if m.Renderable(cluster) {
			dc.DrawString(visible(cluster), x, baseline)
		} else {
			size := min(w, ascent) - 4
			dc.DrawRoundedRectangle(x+2, baseline-size, size, size, size/6)
			dc.SetLineWidth(2)
			dc.Stroke()
		}
		x += w
	}
}

// visible strips zero-width codepoints so the face does not draw notdef
// boxes for them.
func visible(cluster string) string {
	out := make([]rune, 0, len(cluster))
	for _, r := range cluster {
		if !textwrap.IsZeroWidth(r) {
			out = append(out, r)
		}
	}
	return string(out)
}

// circleAvatar decodes data, resizes it to size×size and masks it to a
// circle. Undecodable data yields a circle filled with placeholder.
func circleAvatar(data []byte, size int, placeholder color.Color) image.Image {
	var src image.Image
	if len(data) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			src = imaging.Resize(img, size, size, imaging.Lanczos)
		}
	}
	if src == nil {
		src = imaging.New(size, size, placeholder)
	}

	dc := gg.NewContext(size, size)
	half := float64(size) / 2
	dc.DrawCircle(half, half, half)
	dc.Clip()
	dc.DrawImage(src, 0, 0)
	return dc.Image()
}

func faceHeight(f font.Face) int {
	m := f.Metrics()
	return m.Ascent.Ceil() + m.Descent.Ceil()
}

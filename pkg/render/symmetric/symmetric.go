// Package symmetric mirrors one half of an image onto the other half.
//
// Four directions are supported. [Left] keeps the left half and reflects it
// to the right, [Right] keeps the right half, [Up] keeps the top half and
// [Down] the bottom half. The kept half is floor(axis/2) pixels wide, so an
// odd-sized axis loses its middle row or column.
//
// Static images come back as PNG with alpha preserved. Animated GIFs are
// composited frame by frame, mirrored in parallel and re-encoded as a GIF
// that keeps the source frame durations and loop count:
//
//	out, err := symmetric.Transform(data, symmetric.Left)
package symmetric

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"runtime"
	"strings"
	"time"

	// Static input formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/yiyinbot/yiyin/pkg/errors"
)

// Direction names the half that is kept.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

// DefaultDirection is used when a command gives no direction.
const DefaultDirection = Left

// DefaultFrameDuration replaces missing or non-positive frame durations.
const DefaultFrameDuration = 100 * time.Millisecond

var directionTokens = map[string]Direction{
	"left": Left, "l": Left, "左": Left,
	"right": Right, "r": Right, "右": Right,
	"up": Up, "u": Up, "上": Up,
	"down": Down, "d": Down, "下": Down,
}

// ParseDirection maps an English name, its initial, or one of 左 右 上 下
// to a Direction. Empty input yields [DefaultDirection].
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultDirection, nil
	}
	if d, ok := directionTokens[s]; ok {
		return d, nil
	}
	return "", errors.New(errors.ErrCodeInvalidDirection, "unknown direction %q (want 左/右/上/下)", s)
}

// Valid reports whether d is one of the four mirror directions.
func (d Direction) Valid() bool {
	switch d {
	case Left, Right, Up, Down:
		return true
	}
	return false
}

func (d Direction) horizontal() bool { return d == Left || d == Right }

// Frame is one mirrored animation frame.
type Frame struct {
	Image    *image.NRGBA
	Duration time.Duration
}

// Mirror returns a new image made of the kept half of img and its
// reflection. An invalid direction returns an unmodified copy. The output
// is 2*floor(w/2) wide for horizontal directions and 2*floor(h/2) tall for
// vertical ones.
func Mirror(img image.Image, dir Direction) *image.NRGBA {
	if !dir.Valid() {
		return imaging.Clone(img)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var (
		kept    image.Rectangle
		flip    func(image.Image) *image.NRGBA
		dst     *image.NRGBA
		keptAt  image.Point
		flipAt  image.Point
		halfLen int
	)
	if dir.horizontal() {
		halfLen = w / 2
		flip = imaging.FlipH
		dst = imaging.New(halfLen*2, h, color.NRGBA{})
	} else {
		halfLen = h / 2
		flip = imaging.FlipV
		dst = imaging.New(w, halfLen*2, color.NRGBA{})
	}

	switch dir {
	case Left:
		kept = image.Rect(b.Min.X, b.Min.Y, b.Min.X+halfLen, b.Max.Y)
		flipAt = image.Pt(halfLen, 0)
	case Right:
		kept = image.Rect(b.Max.X-halfLen, b.Min.Y, b.Max.X, b.Max.Y)
		keptAt = image.Pt(halfLen, 0)
	case Up:
		kept = image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+halfLen)
		flipAt = image.Pt(0, halfLen)
	case Down:
		kept = image.Rect(b.Min.X, b.Max.Y-halfLen, b.Max.X, b.Max.Y)
		keptAt = image.Pt(0, halfLen)
	}
	if halfLen == 0 {
		return dst
	}

	part := imaging.Crop(img, kept)
	dst = imaging.Paste(dst, part, keptAt)
	return imaging.Paste(dst, flip(part), flipAt)
}

// checkAxis rejects images whose mirrored axis is shorter than 2 pixels.
func checkAxis(b image.Rectangle, dir Direction) error {
	if !dir.Valid() {
		return nil
	}
	n := b.Dy()
	if dir.horizontal() {
		n = b.Dx()
	}
	if n < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "image is %dx%d, too small to mirror %s", b.Dx(), b.Dy(), dir)
	}
	return nil
}

// Static decodes a single image (PNG, JPEG, GIF, WebP, BMP), mirrors it and
// encodes the result as PNG. Animated input is reduced to its first frame.
func Static(data []byte, dir Direction) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "cannot decode image")
	}
	return mirrorPNG(img, dir)
}

func mirrorPNG(img image.Image, dir Direction) ([]byte, error) {
	if err := checkAxis(img.Bounds(), dir); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Mirror(img, dir), imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "cannot encode png")
	}
	return buf.Bytes(), nil
}

// Animated decodes an animation, mirrors every composited frame and encodes
// a GIF. Non-GIF still images are treated as a one-frame animation.
func Animated(data []byte, dir Direction) ([]byte, error) {
	if !isGIF(data) {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "cannot decode image")
		}
		return animate([]Frame{{Image: imaging.Clone(img), Duration: DefaultFrameDuration}}, 0, dir)
	}
	g, err := decodeGIF(data)
	if err != nil {
		return nil, err
	}
	frames, loop := composite(g)
	return animate(frames, loop, dir)
}

func animate(frames []Frame, loop int, dir Direction) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyAnimation, "animation has no frames")
	}
	if err := checkAxis(frames[0].Image.Bounds(), dir); err != nil {
		return nil, err
	}

	out := make([]Frame, len(frames))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range frames {
		g.Go(func() error {
			out[i] = Frame{Image: Mirror(f.Image, dir), Duration: f.Duration}
			return nil
		})
	}
	_ = g.Wait()

	return EncodeAnimation(out, loop)
}

// Transform picks the animated path for multi-frame GIFs and the static
// path for everything else. GIF input is decoded once.
func Transform(data []byte, dir Direction) ([]byte, error) {
	if !isGIF(data) {
		return Static(data, dir)
	}
	g, err := decodeGIF(data)
	if err != nil {
		return nil, err
	}
	frames, loop := composite(g)
	if len(frames) == 1 {
		return mirrorPNG(frames[0].Image, dir)
	}
	return animate(frames, loop, dir)
}

// IsAnimated reports whether data is a GIF with more than one frame.
func IsAnimated(data []byte) bool {
	if !isGIF(data) {
		return false
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	return err == nil && len(g.Image) > 1
}

func isGIF(data []byte) bool { return bytes.HasPrefix(data, []byte("GIF8")) }

// decodeGIF decodes every frame of a GIF. A well-formed GIF without image
// blocks is EMPTY_ANIMATION; anything else unreadable is DECODE_FAILED.
func decodeGIF(data []byte) (*gif.GIF, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "missing image data") {
			return nil, errors.Wrap(errors.ErrCodeEmptyAnimation, err, "animation has no frames")
		}
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "cannot decode gif")
	}
	if len(g.Image) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyAnimation, "animation has no frames")
	}
	return g, nil
}

// composite returns fully composited frames and the loop count. Frames are
// drawn onto a logical-screen canvas and the canvas is disposed according
// to each frame's disposal method before the next one.
func composite(g *gif.GIF) ([]Frame, int) {
	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() && len(g.Image) > 0 {
		screen = g.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(screen)

	frames := make([]Frame, 0, len(g.Image))
	for i, src := range g.Image {
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var saved *image.NRGBA
		if disposal == gif.DisposalPrevious {
			saved = imaging.Clone(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)
		frames = append(frames, Frame{
			Image:    imaging.Clone(canvas),
			Duration: delayDuration(g.Delay, i),
		})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}

	loop := g.LoopCount
	if loop < 0 {
		loop = 0
	}
	return frames, loop
}

func delayDuration(delays []int, i int) time.Duration {
	if i >= len(delays) || delays[i] <= 0 {
		return DefaultFrameDuration
	}
	return time.Duration(delays[i]) * 10 * time.Millisecond
}

// transparentAlpha is the highest source alpha that becomes fully
// transparent in GIF output.
const transparentAlpha = 128

// EncodeAnimation encodes frames as a GIF that loops loop times (0 means
// forever). Each frame gets its own adaptive palette of up to 255 colors
// plus a reserved transparent entry, and frames are disposed to background.
func EncodeAnimation(frames []Frame, loop int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyAnimation, "animation has no frames")
	}

	anim := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		Disposal:  make([]byte, len(frames)),
		LoopCount: loop,
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range frames {
		anim.Delay[i] = delayCentis(f.Duration)
		anim.Disposal[i] = gif.DisposalBackground
		g.Go(func() error {
			anim.Image[i] = palettize(f.Image)
			return nil
		})
	}
	_ = g.Wait()

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncode, err, "cannot encode gif")
	}
	return buf.Bytes(), nil
}

func delayCentis(d time.Duration) int {
	if d <= 0 {
		d = DefaultFrameDuration
	}
	return max(int((d+5*time.Millisecond)/(10*time.Millisecond)), 1)
}

package symmetric

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
)

// maxColors is the adaptive palette size; one more index is reserved for
// transparency.
const maxColors = 255

// palettize converts img to a paletted image. Colors come from a median-cut
// quantization of the opaque pixels, and any pixel with alpha at or below
// transparentAlpha is mapped to the trailing transparent entry.
func palettize(img *image.NRGBA) *image.Paletted {
	b := img.Bounds()
	opaque := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			c.A = 255
			opaque.SetNRGBA(x, y, c)
		}
	}

	q := quantize.MedianCutQuantizer{}
	pal := q.Quantize(make(color.Palette, 0, maxColors), opaque)
	if len(pal) == 0 {
		pal = append(pal, color.NRGBA{A: 255})
	}
	transparent := uint8(len(pal))
	pal = append(pal, color.NRGBA{})

	out := image.NewPaletted(b, pal)
	lookup := make(map[color.NRGBA]uint8)
	colors := pal[:transparent]
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A <= transparentAlpha {
				out.SetColorIndex(x, y, transparent)
				continue
			}
			c := opaque.NRGBAAt(x, y)
			idx, ok := lookup[c]
			if !ok {
				idx = uint8(colors.Index(c))
				lookup[c] = idx
			}
			out.SetColorIndex(x, y, idx)
		}
	}
	return out
}

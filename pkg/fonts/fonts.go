// Package fonts resolves the font used for rendered chat screenshots.
//
// A CJK-capable system font is preferred because quotes are mostly Chinese
// text. When none is installed, the Go Regular font compiled into the
// binary is used instead, and if even that fails to parse the fixed-size
// basicfont face is returned. Font lookup therefore never fails.
//
// The resolved path and the parsed font are cached after the first lookup:
//
//	src := fonts.Default()
//	face := src.Face(32) // a fresh face, safe to use from one goroutine
package fonts

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// SearchPaths lists the system fonts tried in order. The first existing
// file wins.
var SearchPaths = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/wqy-microhei/wqy-microhei.ttc",
}

// Source hands out font faces at arbitrary sizes.
type Source interface {
	// Face returns a new face of the given pixel size. Faces keep internal
	// buffers, so callers must not share one face between goroutines.
	Face(size float64) font.Face
	// Name describes where the font came from (file path or "builtin").
	Name() string
}

// Loader resolves a font once and caches the result.
type Loader struct {
	paths []string

	once sync.Once
	font *sfnt.Font
	name string
}

// NewLoader creates a Loader that tries path first (if not empty) and then
// the default [SearchPaths].
func NewLoader(path string) *Loader {
	paths := SearchPaths
	if path != "" {
		paths = append([]string{path}, SearchPaths...)
	}
	return &Loader{paths: paths}
}

var (
	defaultLoader     *Loader
	defaultLoaderOnce sync.Once
)

// Default returns the process-wide Loader over [SearchPaths].
func Default() *Loader {
	defaultLoaderOnce.Do(func() {
		defaultLoader = NewLoader("")
	})
	return defaultLoader
}

// Face implements [Source].
func (l *Loader) Face(size float64) font.Face {
	f := l.resolve()
	if f == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Name implements [Source].
func (l *Loader) Name() string {
	l.resolve()
	return l.name
}

func (l *Loader) resolve() *sfnt.Font {
	l.once.Do(func() {
		for _, p := range l.paths {
			if f, err := parseFile(p); err == nil {
				l.font, l.name = f, p
				return
			}
		}
		if f, err := opentype.Parse(goregular.TTF); err == nil {
			l.font, l.name = f, "builtin"
			return
		}
		l.name = "basicfont"
	})
	return l.font
}

func parseFile(path string) (*sfnt.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		c, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return c.Font(0)
	}
	return opentype.Parse(data)
}

// Ensure Loader implements Source.
var _ Source = (*Loader)(nil)

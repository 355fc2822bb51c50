package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestLoaderMissingFileFallsBack(t *testing.T) {
	old := SearchPaths
	SearchPaths = nil
	defer func() { SearchPaths = old }()

	l := NewLoader(filepath.Join(t.TempDir(), "missing.ttf"))
	face := l.Face(24)
	if face == nil {
		t.Fatal("Face() returned nil")
	}
	if l.Name() != "builtin" {
		t.Errorf("Name() = %q, want builtin", l.Name())
	}
	if _, ok := face.GlyphAdvance('A'); !ok {
		t.Error("builtin face should have a glyph for 'A'")
	}
}

func TestLoaderExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(path)
	if l.Name() != path {
		t.Errorf("Name() = %q, want %q", l.Name(), path)
	}

	small := l.Face(10).Metrics().Height
	large := l.Face(40).Metrics().Height
	if large <= small {
		t.Errorf("40px face height %v should exceed 10px face height %v", large, small)
	}
}

func TestLoaderCorruptFileSkipped(t *testing.T) {
	old := SearchPaths
	SearchPaths = nil
	defer func() { SearchPaths = old }()

	path := filepath.Join(t.TempDir(), "broken.ttc")
	if err := os.WriteFile(path, []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(path)
	if l.Name() != "builtin" {
		t.Errorf("Name() = %q, want builtin", l.Name())
	}
}

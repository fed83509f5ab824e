package compose

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"k8s.io/klog/v2"
)

// Family is one typeface in its four styles.
type Family struct {
	Regular    *text.FontSource
	Bold       *text.FontSource
	Italic     *text.FontSource
	BoldItalic *text.FontSource
}

func (f *Family) pick(bold, italic bool) *text.FontSource {
	var s *text.FontSource
	switch {
	case bold && italic:
		s = f.BoldItalic
	case bold:
		s = f.Bold
	case italic:
		s = f.Italic
	}
	if s == nil {
		s = f.Regular
	}
	return s
}

// FontBook resolves CSS font-family lists to faces.
type FontBook struct {
	mu       sync.RWMutex
	families map[string]*Family
	fallback *Family
	emoji    *text.FontSource
}

// NewFontBook returns a book whose fallback family is the Go font family.
func NewFontBook() (*FontBook, error) {
	fam := &Family{}
	for _, f := range []struct {
		dst  **text.FontSource
		data []byte
	}{
		{&fam.Regular, goregular.TTF},
		{&fam.Bold, gobold.TTF},
		{&fam.Italic, goitalic.TTF},
		{&fam.BoldItalic, gobolditalic.TTF},
	} {
		src, err := text.NewFontSource(f.data)
		if err != nil {
			return nil, fmt.Errorf("go font: %w", err)
		}
		*f.dst = src
	}
	return &FontBook{families: map[string]*Family{}, fallback: fam}, nil
}

var defaultFonts = sync.OnceValues(NewFontBook)

// DefaultFontBook returns a shared book holding only the Go fonts.
func DefaultFontBook() (*FontBook, error) {
	return defaultFonts()
}

// LoadFamily reads a family from font files. Missing styles use regular.
func LoadFamily(regular, bold, italic, boldItalic string) (*Family, error) {
	if regular == "" {
		return nil, fmt.Errorf("regular font file is required")
	}
	fam := &Family{}
	for _, f := range []struct {
		dst  **text.FontSource
		path string
	}{
		{&fam.Regular, regular},
		{&fam.Bold, bold},
		{&fam.Italic, italic},
		{&fam.BoldItalic, boldItalic},
	} {
		if f.path == "" {
			continue
		}
		src, err := text.NewFontSourceFromFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.path, err)
		}
		*f.dst = src
	}
	return fam, nil
}

// Register makes a family available under name. Names are case-insensitive.
func (b *FontBook) Register(name string, f *Family) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.families[normalizeFamily(name)] = f
}

// LoadEmoji sets a font used for glyphs the text family lacks.
func (b *FontBook) LoadEmoji(path string) error {
	src, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return fmt.Errorf("emoji font: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emoji = src
	return nil
}

// Family returns the first registered family in a CSS font-family list,
// or the fallback family.
func (b *FontBook) Family(list string) *Family {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, name := range strings.Split(list, ",") {
		if f, ok := b.families[normalizeFamily(name)]; ok {
			return f
		}
	}
	return b.fallback
}

// Face returns a face for the family list at size pixels, with the emoji
// font chained behind it when one is loaded.
func (b *FontBook) Face(list string, bold, italic bool, size float64) text.Face {
	primary := b.Family(list).pick(bold, italic).Face(size)

	b.mu.RLock()
	emoji := b.emoji
	b.mu.RUnlock()
	if emoji == nil {
		return primary
	}

	mf, err := text.NewMultiFace(primary, emoji.Face(size))
	if err != nil {
		klog.Warningf("emoji fallback for %q: %v", list, err)
		return primary
	}
	return mf
}

func normalizeFamily(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), `'"`))
}

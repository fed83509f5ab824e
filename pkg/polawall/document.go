package polawall

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tstromberg/polawall/pkg/compose"
	"github.com/tstromberg/polawall/pkg/filter"
	"github.com/tstromberg/polawall/pkg/layout"
)

// Document is a wall described in YAML.
type Document struct {
	Width      float64     `yaml:"width,omitempty"`
	Height     float64     `yaml:"height,omitempty"`
	Background Fill        `yaml:"background,omitempty"`
	Layout     string      `yaml:"layout,omitempty"`
	Filter     filter.Kind `yaml:"filter,omitempty"`
	Frame      Fill        `yaml:"frame,omitempty"`
	Caption    Style       `yaml:"caption,omitempty"`
	Fonts      []Font      `yaml:"fonts,omitempty"`
	EmojiFont  string      `yaml:"emojiFont,omitempty"`
	Cards      []CardEntry `yaml:"cards,omitempty"`

	// dir is where relative image and font paths are resolved.
	dir string
}

// Fill is a frame or background: a preset name, a color or an image file.
type Fill struct {
	Preset string   `yaml:"preset,omitempty"`
	Color  string   `yaml:"color,omitempty"`
	Image  string   `yaml:"image,omitempty"`
	Crop   *CropBox `yaml:"crop,omitempty"`
}

// CropBox is a crop made on a custom frame image, in the coordinates of the
// dialog it was made in.
type CropBox struct {
	Rotation float64   `yaml:"rotation,omitempty"`
	Box      []float64 `yaml:"box"`
	Viewport []float64 `yaml:"viewport,omitempty"`
	Display  []float64 `yaml:"display"`
}

// Style is the caption style of a card.
type Style struct {
	Font   string `yaml:"font,omitempty"`
	Color  string `yaml:"color,omitempty"`
	Italic bool   `yaml:"italic,omitempty"`
}

// Font is a font family loaded from files.
type Font struct {
	Family     string `yaml:"family"`
	Regular    string `yaml:"regular"`
	Bold       string `yaml:"bold,omitempty"`
	Italic     string `yaml:"italic,omitempty"`
	BoldItalic string `yaml:"boldItalic,omitempty"`
}

// CardEntry is one card of a Document. Photo is the path of the photo
// relative to its input directory.
type CardEntry struct {
	ID       string       `yaml:"id,omitempty"`
	Photo    string       `yaml:"photo,omitempty"`
	Filter   *filter.Kind `yaml:"filter,omitempty"`
	Frame    *Fill        `yaml:"frame,omitempty"`
	Caption  string       `yaml:"caption,omitempty"`
	Date     string       `yaml:"date,omitempty"`
	Style    *Style       `yaml:"style,omitempty"`
	X        float64      `yaml:"x"`
	Y        float64      `yaml:"y"`
	Rotation float64      `yaml:"rotation,omitempty"`
	Scale    float64      `yaml:"scale,omitempty"`
}

// LoadDocument reads and validates a wall document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wall document: %w", err)
	}

	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse wall document: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wall document: %w", err)
	}

	d.dir = filepath.Dir(path)
	return &d, nil
}

// Save writes d to path as YAML.
func (d *Document) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Validate checks that d describes a wall that can be rendered.
func (d *Document) Validate() error {
	if d.Width < 0 || d.Height < 0 {
		return fmt.Errorf("wall size %vx%v is negative", d.Width, d.Height)
	}

	if d.Layout != "" {
		if _, err := layout.ParseTemplate(d.Layout); err != nil {
			return err
		}
	}

	if err := d.Background.validate(); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if d.Background.Crop != nil {
		return errors.New("background: crop is only supported on frames")
	}
	if err := d.Frame.validate(); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	if err := d.Caption.validate(); err != nil {
		return fmt.Errorf("caption: %w", err)
	}

	for i, f := range d.Fonts {
		if f.Family == "" || f.Regular == "" {
			return fmt.Errorf("font %d: family and regular are required", i)
		}
	}

	seen := map[string]bool{}
	for i, c := range d.Cards {
		if c.ID != "" {
			if seen[c.ID] {
				return fmt.Errorf("card %d: duplicate id %q", i, c.ID)
			}
			seen[c.ID] = true
		}
		if c.Frame != nil {
			if err := c.Frame.validate(); err != nil {
				return fmt.Errorf("card %d frame: %w", i, err)
			}
		}
		if c.Style != nil {
			if err := c.Style.validate(); err != nil {
				return fmt.Errorf("card %d style: %w", i, err)
			}
		}
	}

	return nil
}

func (f Fill) validate() error {
	set := 0
	for _, s := range []string{f.Preset, f.Color, f.Image} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return errors.New("only one of preset, color and image may be set")
	}
	if f.Color != "" {
		if _, err := compose.ParseColor(f.Color); err != nil {
			return err
		}
	}
	if f.Crop != nil {
		if f.Image == "" {
			return errors.New("crop requires an image")
		}
		if len(f.Crop.Box) != 4 {
			return fmt.Errorf("crop box has %d values, want 4", len(f.Crop.Box))
		}
		if len(f.Crop.Display) != 2 {
			return fmt.Errorf("crop display has %d values, want 2", len(f.Crop.Display))
		}
		if n := len(f.Crop.Viewport); n != 0 && n != 2 {
			return fmt.Errorf("crop viewport has %d values, want 2", n)
		}
	}
	return nil
}

func (s Style) validate() error {
	if s.Color == "" {
		return nil
	}
	_, err := compose.ParseColor(s.Color)
	return err
}

// resolve returns path relative to the document directory.
func (d *Document) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || d.dir == "" {
		return path
	}
	return filepath.Join(d.dir, path)
}

// captionStyle merges s over base.
func (s *Style) captionStyle(base compose.CaptionStyle) compose.CaptionStyle {
	if s == nil {
		return base
	}
	if s.Font != "" {
		base.FontFamily = s.Font
	}
	if s.Color != "" {
		base.Color = s.Color
	}
	if s.Italic {
		base.Italic = true
	}
	return base
}

// Entry returns the entry of a card, matched by ID or, for entries without
// an ID, by photo. A new entry is added when none matches.
func (d *Document) Entry(id, photo string) *CardEntry {
	for i := range d.Cards {
		e := &d.Cards[i]
		if (id != "" && e.ID == id) || (e.ID == "" && photo != "" && e.Photo == photo) {
			return e
		}
	}
	d.Cards = append(d.Cards, CardEntry{ID: id, Photo: photo})
	return &d.Cards[len(d.Cards)-1]
}

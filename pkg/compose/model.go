package compose

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// Card geometry in logical pixels at scale 1.
const (
	CardWidth     = 170
	CardHeight    = 240
	PaddingTop    = 10
	PaddingSide   = 10
	PaddingBottom = 60
	PhotoWidth    = 150
	PhotoHeight   = 180
	PhotoRadius   = 3

	MinScale = 1.0
	MaxScale = 2.0

	// ExportScale is the resolution multiplier of every export.
	ExportScale = 2

	MaxCaptionLen = 20
	MaxDateLen    = 15

	// DateFormat is the layout of card dates.
	DateFormat = "2006.01.02"
)

// FillKind selects how a frame or wall background is painted.
type FillKind int

const (
	FillPreset FillKind = iota
	FillSolid
	FillCustom
)

func (k FillKind) String() string {
	switch k {
	case FillPreset:
		return "preset"
	case FillSolid:
		return "solidColor"
	case FillCustom:
		return "custom"
	}
	return fmt.Sprintf("FillKind(%d)", int(k))
}

// FrameStyle is the paper of a card.
type FrameStyle struct {
	Kind   FillKind
	Preset string
	Color  string
	Image  *Bitmap
}

// PresetFrame returns a frame using a named preset.
func PresetFrame(name string) FrameStyle { return FrameStyle{Kind: FillPreset, Preset: name} }

// SolidFrame returns a flat colored frame.
func SolidFrame(color string) FrameStyle { return FrameStyle{Kind: FillSolid, Color: color} }

// CustomFrame returns a frame painted with img.
func CustomFrame(img *Bitmap) FrameStyle { return FrameStyle{Kind: FillCustom, Image: img} }

// Background is the paint behind a wall.
type Background struct {
	Kind   FillKind
	Preset string
	Color  string
	Image  *Bitmap
}

// PresetBackground returns a wall background using a named preset.
func PresetBackground(name string) Background { return Background{Kind: FillPreset, Preset: name} }

// SolidBackground returns a flat colored wall background.
func SolidBackground(color string) Background { return Background{Kind: FillSolid, Color: color} }

// CustomBackground returns a wall background painted with img.
func CustomBackground(img *Bitmap) Background { return Background{Kind: FillCustom, Image: img} }

// CaptionStyle controls caption and date text.
type CaptionStyle struct {
	FontFamily string
	Color      string
	Italic     bool
}

// DefaultCaptionStyle is used for cards that do not set one.
var DefaultCaptionStyle = CaptionStyle{
	FontFamily: "'Nunito', sans-serif",
	Color:      "#666666",
}

// Card is one polaroid on the wall.
type Card struct {
	ID    string
	Photo *Bitmap
	Frame FrameStyle

	Caption string
	Date    string
	Style   CaptionStyle

	X, Y     float64
	Rotation float64
	Scale    float64
}

// NewCard returns a card at scale 1 with the default caption style.
func NewCard(photo *Bitmap, frame FrameStyle) *Card {
	return &Card{Photo: photo, Frame: frame, Style: DefaultCaptionStyle, Scale: MinScale}
}

// SetScale sets the card scale, clamped to [MinScale, MaxScale].
func (c *Card) SetScale(s float64) {
	c.Scale = clampScale(s)
}

// SetScaleFromWidth resizes the card so that it is w logical pixels wide.
func (c *Card) SetScaleFromWidth(w float64) {
	c.SetScale(w / CardWidth)
}

// SetCaption sets the caption, keeping at most MaxCaptionLen characters.
func (c *Card) SetCaption(s string) {
	c.Caption = truncate(s, MaxCaptionLen)
}

// SetDate sets the date text, keeping at most MaxDateLen characters.
func (c *Card) SetDate(s string) {
	c.Date = truncate(s, MaxDateLen)
}

// Size returns the logical card size at its current scale.
func (c *Card) Size() (float64, float64) {
	s := clampScale(c.Scale)
	return CardWidth * s, CardHeight * s
}

func clampScale(s float64) float64 {
	if !(s >= MinScale) {
		return MinScale
	}
	return min(s, MaxScale)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Wall is a set of cards over a background. Cards are stored in z-order,
// the last card is on top.
type Wall struct {
	Background    Background
	Cards         []*Card
	Width, Height float64

	seq int
}

// NewWall returns an empty wall with a white background.
func NewWall(width, height float64) *Wall {
	return &Wall{Width: width, Height: height, Background: SolidBackground("#FFFFFF")}
}

// Add places c on top of every other card. Cards without an ID are given one.
func (w *Wall) Add(c *Card) *Card {
	w.seq++
	if c.ID == "" {
		c.ID = fmt.Sprintf("photo-%d", w.seq)
		for w.Card(c.ID) != nil {
			w.seq++
			c.ID = fmt.Sprintf("photo-%d", w.seq)
		}
	}
	w.Cards = append(w.Cards, c)
	return c
}

// Card returns the card with the given ID, or nil.
func (w *Wall) Card(id string) *Card {
	for _, c := range w.Cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Promote moves a card to the top of the z-order.
func (w *Wall) Promote(id string) bool {
	i := slices.IndexFunc(w.Cards, func(c *Card) bool { return c.ID == id })
	if i < 0 {
		return false
	}
	c := w.Cards[i]
	w.Cards = append(slices.Delete(w.Cards, i, i+1), c)
	return true
}

// Remove deletes a card from the wall.
func (w *Wall) Remove(id string) bool {
	i := slices.IndexFunc(w.Cards, func(c *Card) bool { return c.ID == id })
	if i < 0 {
		return false
	}
	w.Cards = slices.Delete(w.Cards, i, i+1)
	return true
}

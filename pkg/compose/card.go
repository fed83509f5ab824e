// Package compose renders polaroid cards and walls of cards.
package compose

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/clone"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"k8s.io/klog/v2"
)

// DefaultMaxPixels bounds the size of an export canvas.
const DefaultMaxPixels = 8192 * 8192

const (
	captionSize = 11
	dateSize    = 9
	dateAlpha   = 0.7
)

var white = gg.RGBA{R: 1, G: 1, B: 1, A: 1}

// Options configures rendering. The zero value is usable.
type Options struct {
	Fonts *FontBook
	// MaxPixels is the largest canvas an export may allocate.
	MaxPixels int
	// DecodeTimeout bounds each image decode. Zero waits for ctx only.
	DecodeTimeout time.Duration
}

func (o *Options) fontBook() (*FontBook, error) {
	if o != nil && o.Fonts != nil {
		return o.Fonts, nil
	}
	return DefaultFontBook()
}

func (o *Options) decode(ctx context.Context, b *Bitmap) (image.Image, error) {
	if o != nil && o.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.DecodeTimeout)
		defer cancel()
	}
	return b.Decode(ctx)
}

// newCanvas returns a canvas for a w by h logical region at export scale.
func (o *Options) newCanvas(w, h float64) (*gg.Context, error) {
	limit := DefaultMaxPixels
	if o != nil && o.MaxPixels > 0 {
		limit = o.MaxPixels
	}
	pw, ph := int(w*ExportScale), int(h*ExportScale)
	if pw <= 0 || ph <= 0 || pw*ph > limit {
		return nil, fmt.Errorf("%dx%d canvas (limit %d pixels): %w", pw, ph, limit, ErrSurface)
	}
	dc := gg.NewContext(pw, ph)
	dc.Scale(ExportScale, ExportScale)
	return dc, nil
}

func snapshot(dc *gg.Context) *image.RGBA {
	if r, ok := dc.Image().(*image.RGBA); ok {
		return r
	}
	return clone.AsRGBA(dc.Image())
}

// layers are the decoded images a card needs. A nil layer is skipped.
type layers struct {
	photo image.Image
	frame image.Image
}

func (o *Options) load(ctx context.Context, c *Card) layers {
	var l layers
	var err error
	if c.Photo != nil {
		if l.photo, err = o.decode(ctx, c.Photo); err != nil {
			klog.Warningf("card %s: skipping photo: %v", c.ID, err)
		}
	}
	if c.Frame.Kind == FillCustom {
		if l.frame, err = o.decode(ctx, c.Frame.Image); err != nil {
			klog.Warningf("card %s: skipping custom frame: %v", c.ID, err)
		}
	}
	return l
}

// RenderCard flattens a single card at twice its logical size.
func RenderCard(ctx context.Context, c *Card, o *Options) (*image.RGBA, error) {
	fb, err := o.fontBook()
	if err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}

	w, h := c.Size()
	dc, err := o.newCanvas(w, h)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	l := o.load(ctx, c)
	drawCard(dc, fb, c, l)

	klog.V(1).Infof("rendered card %s at %dx%d", c.ID, dc.Width(), dc.Height())
	return snapshot(dc), nil
}

// RenderPhoto exports the card photo alone, cover-fit into the photo area
// at twice its logical size.
func RenderPhoto(ctx context.Context, c *Card, o *Options) (*image.RGBA, error) {
	s := clampScale(c.Scale)
	pw, ph := PhotoWidth*s, PhotoHeight*s
	dc, err := o.newCanvas(pw, ph)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	img, err := o.decode(ctx, c.Photo)
	if err != nil {
		return nil, fmt.Errorf("photo: %w", err)
	}
	coverFit(dc, img, 0, 0, pw, ph)
	return snapshot(dc), nil
}

// drawCard paints a card with its top-left corner at the user-space origin.
func drawCard(dc *gg.Context, fb *FontBook, c *Card, l layers) {
	s := clampScale(c.Scale)
	w, h := c.Size()

	dc.Push()
	dc.DrawRectangle(0, 0, w, h)
	dc.Clip()
	drawFrame(dc, c.Frame, l.frame, w, h)
	dc.Pop()

	if l.photo != nil {
		x, y := PaddingSide*s, PaddingTop*s
		pw, ph := PhotoWidth*s, PhotoHeight*s
		dc.Push()
		dc.DrawRoundedRectangle(x, y, pw, ph, PhotoRadius*s)
		dc.Clip()
		coverFit(dc, l.photo, x, y, pw, ph)
		dc.Pop()
	}

	if c.Frame.Kind == FillPreset {
		if p, ok := framePresets[c.Frame.Preset]; ok {
			drawDecorations(dc, fb, p, w, s)
		}
	}

	style := c.Style
	if style.FontFamily == "" {
		style.FontFamily = DefaultCaptionStyle.FontFamily
	}
	ink := colorOr(style.Color, hex(DefaultCaptionStyle.Color))

	if c.Caption != "" {
		face := fb.Face(style.FontFamily, true, style.Italic, captionSize*s)
		drawCentered(dc, face, truncate(c.Caption, MaxCaptionLen), w/2, h-35*s, ink)
	}
	if c.Date != "" {
		face := fb.Face(style.FontFamily, false, style.Italic, dateSize*s)
		drawCentered(dc, face, truncate(c.Date, MaxDateLen), w/2, h-20*s, withAlpha(ink, dateAlpha))
	}
}

func drawFrame(dc *gg.Context, f FrameStyle, custom image.Image, w, h float64) {
	switch f.Kind {
	case FillSolid:
		dc.SetFillBrush(gg.Solid(colorOr(f.Color, white)))
		fillRect(dc, 0, 0, w, h)
		strokeRect(dc, gg.RGBA2(0, 0, 0, 0.1), 1, 0.5, 0.5, w-1, h-1)
		return

	case FillCustom:
		dc.SetFillBrush(gg.Solid(white))
		fillRect(dc, 0, 0, w, h)
		if custom != nil {
			stretch(dc, custom, 0, 0, w, h)
		}
		return
	}

	p, ok := framePresets[f.Preset]
	if !ok {
		if f.Preset != "" {
			klog.V(1).Infof("unknown frame preset %q, using white", f.Preset)
		}
		dc.SetFillBrush(gg.Solid(white))
		fillRect(dc, 0, 0, w, h)
		return
	}

	if p.base != "" {
		dc.SetFillBrush(gg.Solid(hex(p.base)))
		fillRect(dc, 0, 0, w, h)
	}
	dc.SetFillBrush(verticalGradient(dc, 0, 0, h, p.stops))
	fillRect(dc, 0, 0, w, h)
	strokeRect(dc, hex(p.border), frameBorderWidth, 1, 1, w-2, h-2)
}

func drawDecorations(dc *gg.Context, fb *FontBook, p framePreset, w, s float64) {
	y := decorationY * s
	for _, d := range []struct {
		g glyph
		x float64
	}{
		{p.left, 10 * s},
		{p.right, w - p.inset*s},
	} {
		face := fb.Face("", false, false, d.g.size*s)
		str := printable(face, d.g.text)
		if str == "" {
			klog.V(2).Infof("no glyphs for decoration %q", d.g.text)
			continue
		}
		ink := hex(decorationInk)
		if d.g.color != "" {
			ink = hex(d.g.color)
		}
		dc.SetFont(face)
		dc.SetFillBrush(gg.Solid(ink))
		dc.DrawString(str, d.x, y)
	}
}

// coverFit draws img scaled to cover the box and centered on it.
func coverFit(dc *gg.Context, img image.Image, x, y, w, h float64) {
	b := img.Bounds()
	nw, nh := float64(b.Dx()), float64(b.Dy())
	if nw == 0 || nh == 0 {
		return
	}
	k := max(w/nw, h/nh)
	dw, dh := nw*k, nh*k
	stretch(dc, img, x+(w-dw)/2, y+(h-dh)/2, dw, dh)
}

func stretch(dc *gg.Context, img image.Image, x, y, w, h float64) {
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X: x, Y: y,
		DstWidth: w, DstHeight: h,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
	})
}

func drawCentered(dc *gg.Context, face text.Face, s string, cx, baseline float64, ink gg.RGBA) {
	dc.SetFont(face)
	tw, _ := dc.MeasureString(s)
	dc.SetFillBrush(gg.Solid(ink))
	dc.DrawString(s, cx-tw/2, baseline)
}

// printable drops the runes face cannot draw. Variation selectors are
// dropped too. It returns "" when nothing visible is left.
func printable(face text.Face, s string) string {
	var sb strings.Builder
	visible := false
	for _, r := range s {
		switch {
		case r == '\uFE0F' || r == '\uFE0E':
		case r == ' ':
			sb.WriteRune(r)
		case face.HasGlyph(r):
			sb.WriteRune(r)
			visible = true
		}
	}
	if !visible {
		return ""
	}
	return sb.String()
}

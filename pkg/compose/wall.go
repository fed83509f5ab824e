package compose

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
	"k8s.io/klog/v2"
)

// RenderWall flattens the wall and every card on it at twice the wall size.
// Cards are drawn one at a time in z-order; each card's images are decoded
// before any of it is drawn.
func RenderWall(ctx context.Context, w *Wall, o *Options) (*image.RGBA, error) {
	fb, err := o.fontBook()
	if err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}

	dc, err := o.newCanvas(w.Width, w.Height)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	var bg image.Image
	if w.Background.Kind == FillCustom {
		if bg, err = o.decode(ctx, w.Background.Image); err != nil {
			klog.Warningf("wall: skipping custom background: %v", err)
		}
	}
	drawBackground(dc, fb, w.Background, bg, w.Width, w.Height)

	for _, c := range w.Cards {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("wall: %w", err)
		}
		l := o.load(ctx, c)

		cw, ch := c.Size()
		dc.Push()
		dc.Translate(c.X, c.Y)
		if c.Rotation != 0 {
			dc.RotateAbout(c.Rotation*math.Pi/180, cw/2, ch/2)
		}
		drawCard(dc, fb, c, l)
		dc.Pop()
	}

	klog.V(1).Infof("rendered wall with %d cards at %dx%d", len(w.Cards), dc.Width(), dc.Height())
	return snapshot(dc), nil
}

func drawBackground(dc *gg.Context, fb *FontBook, b Background, custom image.Image, w, h float64) {
	switch b.Kind {
	case FillSolid:
		dc.SetFillBrush(gg.Solid(colorOr(b.Color, white)))
		fillRect(dc, 0, 0, w, h)
		return

	case FillCustom:
		dc.SetFillBrush(gg.Solid(white))
		fillRect(dc, 0, 0, w, h)
		if custom != nil {
			stretch(dc, custom, 0, 0, w, h)
		}
		return
	}

	p, ok := backgroundPresets[b.Preset]
	if !ok {
		if b.Preset != "" {
			klog.V(1).Infof("unknown background preset %q, using white", b.Preset)
		}
		dc.SetFillBrush(gg.Solid(white))
		fillRect(dc, 0, 0, w, h)
		return
	}

	dc.SetFillBrush(verticalGradient(dc, 0, 0, h, p.stops))
	fillRect(dc, 0, 0, w, h)

	ink := hex(wallDecorationInk)
	for _, d := range p.decor {
		face := fb.Face("", false, false, d.size)
		str := printable(face, d.text)
		if str == "" {
			continue
		}
		dc.SetFont(face)
		dc.SetFillBrush(gg.Solid(ink))
		dc.DrawString(str, w*d.fx, h*d.fy)
	}
}

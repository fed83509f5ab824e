package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"k8s.io/klog/v2"
)

type stop struct {
	at    float64
	color gg.RGBA
}

// verticalGradient returns a top to bottom brush over the user-space box.
// Brushes are sampled in device space, so the end points go through the
// current transform.
func verticalGradient(dc *gg.Context, x, y, h float64, ss []stop) *gg.LinearGradientBrush {
	x0, y0 := dc.TransformPoint(x, y)
	x1, y1 := dc.TransformPoint(x, y+h)
	g := gg.NewLinearGradientBrush(x0, y0, x1, y1)
	for _, s := range ss {
		g.AddColorStop(s.at, s.color)
	}
	return g
}

func fillRect(dc *gg.Context, x, y, w, h float64) {
	dc.DrawRectangle(x, y, w, h)
	painted("fill", dc.Fill())
}

func strokeRect(dc *gg.Context, c gg.RGBA, lw, x, y, w, h float64) {
	dc.SetStrokeBrush(gg.Solid(c))
	dc.SetLineWidth(lw)
	dc.DrawRectangle(x, y, w, h)
	painted("stroke", dc.Stroke())
}

// painted reports whether a raster op succeeded. A failed op leaves the
// surface as it was, so the render carries on and the error is logged.
func painted(op string, err error) bool {
	if err != nil {
		klog.Warningf("%s failed: %v", op, err)
		return false
	}
	return true
}

var namedColors = map[string]string{
	"white":       "#FFFFFF",
	"black":       "#000000",
	"transparent": "#00000000",
}

// ParseColor parses a CSS hex color, rgb()/rgba() color, or one of a few
// named colors.
func ParseColor(s string) (gg.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if digits, ok := strings.CutPrefix(s, "#"); ok {
		switch len(digits) {
		case 3, 4, 6, 8:
		default:
			return gg.RGBA{}, fmt.Errorf("color %q: want 3, 4, 6 or 8 hex digits", s)
		}
		if _, err := strconv.ParseUint(digits, 16, 32); err != nil {
			return gg.RGBA{}, fmt.Errorf("color %q: %w", s, err)
		}
		return gg.Hex(digits), nil
	}

	args, ok := strings.CutPrefix(s, "rgba(")
	if !ok {
		args, ok = strings.CutPrefix(s, "rgb(")
	}
	args, closed := strings.CutSuffix(args, ")")
	if !ok || !closed {
		return gg.RGBA{}, fmt.Errorf("unsupported color %q", s)
	}

	parts := strings.Split(args, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return gg.RGBA{}, fmt.Errorf("color %q: want 3 or 4 components", s)
	}
	v := [4]float64{0, 0, 0, 1}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return gg.RGBA{}, fmt.Errorf("color %q: %w", s, err)
		}
		if i < 3 {
			f /= 255
		}
		v[i] = min(max(f, 0), 1)
	}
	return gg.RGBA2(v[0], v[1], v[2], v[3]), nil
}

func mustColor(s string) gg.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// colorOr parses s, returning fallback when it is empty or invalid.
func colorOr(s string, fallback gg.RGBA) gg.RGBA {
	if s == "" {
		return fallback
	}
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

func withAlpha(c gg.RGBA, a float64) gg.RGBA {
	c.A *= a
	return c
}

// Package filter applies the polaroid tone filters to raster images.
package filter

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/anthonynsimon/bild/parallel"
)

// Kind names a filter.
type Kind int

const (
	Original Kind = iota
	Vivid
	Film
	BlackWhite
	Warm
	Cool
)

var names = map[Kind]string{
	Original:   "original",
	Vivid:      "vivid",
	Film:       "film",
	BlackWhite: "bw",
	Warm:       "warm",
	Cool:       "cool",
}

// Kinds lists every filter in menu order.
var Kinds = []Kind{Original, Vivid, Film, BlackWhite, Warm, Cool}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Deterministic reports whether repeated application yields identical output.
func (k Kind) Deterministic() bool {
	return k != Film
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := names[k]; !ok {
		return nil, fmt.Errorf("unknown filter %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	p, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = p
	return nil
}

// ParseKind returns the filter named s. An empty name is Original.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none":
		return Original, nil
	case "blackwhite", "grayscale":
		return BlackWhite, nil
	}
	for k, n := range names {
		if n == s {
			return k, nil
		}
	}
	return Original, fmt.Errorf("unknown filter %q", s)
}

// Apply returns a filtered copy of img. The input is never modified and the
// result has the same dimensions, with its origin at (0,0).
func Apply(img image.Image, k Kind) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			i := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:], n.Pix[i:i+b.Dx()*4])
		}
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}

	px := pixelFunc(k)
	if px == nil {
		return dst
	}

	w := b.Dx()
	parallel.Line(b.Dy(), func(start, end int) {
		for y := start; y < end; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				row[i], row[i+1], row[i+2] = px(row[i], row[i+1], row[i+2])
			}
		}
	})
	return dst
}

type pixel func(r, g, b uint8) (uint8, uint8, uint8)

func pixelFunc(k Kind) pixel {
	switch k {
	case Vivid:
		return vivid
	case Film:
		return film
	case BlackWhite:
		return blackWhite
	case Warm:
		return scale(1.15, 1.05, 0.9)
	case Cool:
		return scale(0.9, 1.05, 1.15)
	}
	return nil
}

// clamp rounds half to even and saturates to a byte, the way canvas pixel
// buffers store values.
func clamp(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}

func luma(r, g, b uint8) float64 {
	return 0.3*float64(r) + 0.59*float64(g) + 0.11*float64(b)
}

func scale(fr, fg, fb float64) pixel {
	return func(r, g, b uint8) (uint8, uint8, uint8) {
		return clamp(float64(r) * fr), clamp(float64(g) * fg), clamp(float64(b) * fb)
	}
}

func vivid(r, g, b uint8) (uint8, uint8, uint8) {
	r, g, b = clamp(float64(r)*1.2), clamp(float64(g)*1.2), clamp(float64(b)*1.2)
	shift := -15.0
	if (float64(r)+float64(g)+float64(b))/3 > 128 {
		shift = 15
	}
	return clamp(float64(r) + shift), clamp(float64(g) + shift), clamp(float64(b) + shift)
}

func film(r, g, b uint8) (uint8, uint8, uint8) {
	n := (rand.Float64() - 0.5) * 30
	r, g, b = clamp(float64(r)+10+n), clamp(float64(g)+5+n), clamp(float64(b)-5+n)
	gray := luma(r, g, b)
	fade := func(c uint8) uint8 { return clamp(float64(c)*0.8 + gray*0.2) }
	return fade(r), fade(g), fade(b)
}

func blackWhite(r, g, b uint8) (uint8, uint8, uint8) {
	v := clamp(luma(r, g, b))
	return v, v, v
}

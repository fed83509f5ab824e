// Package crop maps display-space crop rectangles back onto source pixels.
package crop

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"k8s.io/klog/v2"
)

// ExportScale is the resolution multiplier applied to every crop output.
const ExportScale = 2

// DefaultMaxPixels bounds the images a crop may allocate.
const DefaultMaxPixels = 8192 * 8192

var (
	// ErrNoSource is returned when a crop is requested without an image.
	ErrNoSource = errors.New("no source image")

	// ErrTooLarge is returned when a crop would allocate more than its pixel budget.
	ErrTooLarge = errors.New("crop too large")
)

// Spec describes a crop made in a dialog: the source is shown rotated,
// scaled to Display size and centered in a Viewport, and the user drags a
// Box in viewport coordinates.
type Spec struct {
	Source          image.Image
	RotationDegrees float64

	BoxX, BoxY          float64
	BoxWidth, BoxHeight float64

	ViewportWidth, ViewportHeight float64
	DisplayWidth, DisplayHeight   float64

	// MaxPixels bounds the rotated source and the output. Zero means
	// DefaultMaxPixels.
	MaxPixels int
}

// Window is the source rectangle selected by a Spec, in pixels of the
// rotated source.
type Window struct {
	X, Y, Width, Height float64
}

// SquareCentered returns the largest centered square of img.
func SquareCentered(img image.Image) *image.RGBA {
	b := img.Bounds()
	size := min(b.Dx(), b.Dy())
	x := b.Min.X + (b.Dx()-size)/2
	y := b.Min.Y + (b.Dy()-size)/2
	return rebase(transform.Crop(img, image.Rect(x, y, x+size, y+size)))
}

// Rotate returns src rotated clockwise by deg about its center, on a canvas
// expanded to hold the whole rotated image.
func Rotate(src image.Image, deg float64) *image.RGBA {
	img := rebase(clone.AsShallowRGBA(src))
	if deg == 0 {
		return img
	}
	return transform.Rotate(img, deg, &transform.RotationOptions{ResizeBounds: true})
}

// Locate returns the window of a rotated image of size (rw, rh) that the
// crop box covers.
func (s Spec) Locate(rw, rh int) Window {
	dw := atLeastOne(s.DisplayWidth)
	dh := atLeastOne(s.DisplayHeight)
	vw, vh := s.ViewportWidth, s.ViewportHeight
	if vw <= 0 || vh <= 0 {
		vw, vh = dw, dh
	}

	offX := (vw - dw) / 2
	offY := (vh - dh) / 2
	scaleX := float64(rw) / dw
	scaleY := float64(rh) / dh

	return Window{
		X:      math.Max(0, (s.BoxX-offX)*scaleX),
		Y:      math.Max(0, (s.BoxY-offY)*scaleY),
		Width:  atLeastOne(s.BoxWidth) * scaleX,
		Height: atLeastOne(s.BoxHeight) * scaleY,
	}
}

// OutputSize is the pixel size of the image ToBox produces.
func (s Spec) OutputSize() (int, int) {
	return int(atLeastOne(s.BoxWidth) * ExportScale), int(atLeastOne(s.BoxHeight) * ExportScale)
}

// ToBox returns the source pixels under the crop box at twice the box size.
// Areas of the window past the rotated image stay transparent.
func ToBox(s Spec) (*image.RGBA, error) {
	if s.Source == nil {
		return nil, ErrNoSource
	}
	sb := s.Source.Bounds()
	if sb.Empty() {
		return nil, fmt.Errorf("empty source %v: %w", sb, ErrNoSource)
	}

	limit := float64(DefaultMaxPixels)
	if s.MaxPixels > 0 {
		limit = float64(s.MaxPixels)
	}
	if px := atLeastOne(s.BoxWidth) * atLeastOne(s.BoxHeight) * ExportScale * ExportScale; px > limit {
		return nil, fmt.Errorf("%vx%v box at %dx (limit %v pixels): %w", s.BoxWidth, s.BoxHeight, ExportScale, limit, ErrTooLarge)
	}
	if rw, rh := rotatedSize(sb.Dx(), sb.Dy(), s.RotationDegrees); rw*rh > limit {
		return nil, fmt.Errorf("%.0fx%.0f rotated source (limit %v pixels): %w", rw, rh, limit, ErrTooLarge)
	}

	rotated := Rotate(s.Source, s.RotationDegrees)
	rb := rotated.Bounds()
	w := s.Locate(rb.Dx(), rb.Dy())
	ow, oh := s.OutputSize()
	klog.V(1).Infof("crop: rotate %.1f° %v -> %v, window %+v -> %dx%d", s.RotationDegrees, sb.Size(), rb.Size(), w, ow, oh)

	out := image.NewRGBA(image.Rect(0, 0, ow, oh))
	if !finite(w.X, w.Y, w.Width, w.Height) || w.Width <= 0 || w.Height <= 0 {
		return out, nil
	}
	// whole pixels touched by the window; sampling never reaches past them
	sr := image.Rect(
		clampTo(math.Floor(w.X), rb.Max.X), clampTo(math.Floor(w.Y), rb.Max.Y),
		clampTo(math.Ceil(w.X+w.Width), rb.Max.X), clampTo(math.Ceil(w.Y+w.Height), rb.Max.Y),
	).Intersect(rb)
	if sr.Empty() {
		return out, nil
	}

	kx, ky := float64(ow)/w.Width, float64(oh)/w.Height
	s2d := f64.Aff3{
		kx, 0, -w.X * kx,
		0, ky, -w.Y * ky,
	}
	draw.BiLinear.Transform(out, s2d, rotated, sr, draw.Src, nil)
	return out, nil
}

// rotatedSize is the canvas size Rotate produces for a w by h image.
func rotatedSize(w, h int, deg float64) (float64, float64) {
	if deg == 0 {
		return float64(w), float64(h)
	}
	sin, cos := math.Sincos(deg * math.Pi / 180)
	sin, cos = math.Abs(sin), math.Abs(cos)
	return math.Ceil(float64(w)*cos + float64(h)*sin), math.Ceil(float64(w)*sin + float64(h)*cos)
}

func clampTo(v float64, hi int) int {
	return int(math.Max(0, math.Min(v, float64(hi))))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func atLeastOne(v float64) float64 {
	if v < 1 || math.IsNaN(v) {
		return 1
	}
	return v
}

// rebase moves the origin of img to (0,0) without copying pixels.
func rebase(img *image.RGBA) *image.RGBA {
	if img.Rect.Min == (image.Point{}) {
		return img
	}
	out := *img
	out.Rect = img.Rect.Sub(img.Rect.Min)
	return &out
}

// Package layout arranges cards on a wall.
package layout

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/tstromberg/polawall/pkg/compose"
	"k8s.io/klog/v2"
)

// Template names an arrangement of cards.
type Template string

const (
	Grid     Template = "grid"
	Row      Template = "row"
	Column   Template = "column"
	Diagonal Template = "diagonal"
	Circle   Template = "circle"
	Scatter  Template = "scatter"
)

// Templates lists the known templates.
var Templates = []Template{Grid, Row, Column, Diagonal, Circle, Scatter}

// Padding is kept free along the wall edges.
const Padding = 30

const scatterAttempts = 50

// Source supplies uniform random numbers in [0,1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

func orGlobal(r Source) Source {
	if r == nil {
		return globalSource{}
	}
	return r
}

// Position is where a card goes: its top-left corner and rotation in degrees.
type Position struct {
	X, Y     float64
	Rotation float64
}

// ParseTemplate returns the template named s.
func ParseTemplate(s string) (Template, error) {
	t := Template(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Templates {
		if k == t {
			return t, nil
		}
	}
	return Grid, fmt.Errorf("unknown layout %q", s)
}

// jitter returns a rotation in [-spread/2, spread/2).
func jitter(r Source, spread float64) float64 {
	return (r.Float64() - 0.5) * spread
}

// Positions computes count positions for cards of size (cw, ch) on a wall of
// size (ww, wh). Unknown templates fall back to Grid.
func Positions(t Template, count int, ww, wh, cw, ch float64, r Source) []Position {
	r = orGlobal(r)
	out := make([]Position, 0, count)
	if count <= 0 {
		return out
	}

	availW := ww - cw - Padding*2
	availH := wh - ch - Padding*2
	steps := float64(max(count-1, 1))

	switch t {
	case Row:
		y := (wh - ch) / 2
		for i := range count {
			out = append(out, Position{X: Padding + float64(i)*availW/steps, Y: y, Rotation: jitter(r, 8)})
		}

	case Column:
		x := (ww - cw) / 2
		for i := range count {
			out = append(out, Position{X: x, Y: Padding + float64(i)*availH/steps, Rotation: jitter(r, 8)})
		}

	case Diagonal:
		for i := range count {
			out = append(out, Position{
				X:        Padding + float64(i)*availW/steps,
				Y:        Padding + float64(i)*availH/steps,
				Rotation: -15 + jitter(r, 10),
			})
		}

	case Circle:
		cx, cy := ww/2-cw/2, wh/2-ch/2
		rx := min(availW, availH) / 2 * 0.7
		ry := rx * 0.8
		for i := range count {
			a := float64(i)/float64(count)*2*math.Pi - math.Pi/2
			out = append(out, Position{
				X:        cx + math.Cos(a)*rx,
				Y:        cy + math.Sin(a)*ry,
				Rotation: a*180/math.Pi + 90 + jitter(r, 10),
			})
		}

	case Scatter:
		var used []rect
		for range count {
			var x, y float64
			for attempt := 0; attempt < scatterAttempts; attempt++ {
				x = Padding + r.Float64()*availW
				y = Padding + r.Float64()*availH
				if !overlaps(rect{x, y, cw * 0.8, ch * 0.8}, used) {
					break
				}
			}
			used = append(used, rect{x, y, cw, ch})
			out = append(out, Position{X: x, Y: y, Rotation: jitter(r, 30)})
		}

	default:
		if t != Grid {
			klog.V(1).Infof("unknown layout %q, using grid", t)
		}
		cols := int(math.Ceil(math.Sqrt(float64(count))))
		rows := (count + cols - 1) / cols
		cellW := availW / float64(max(cols-1, 1))
		cellH := availH / float64(max(rows-1, 1))
		for i := range count {
			out = append(out, Position{
				X:        Padding + float64(i%cols)*cellW,
				Y:        Padding + float64(i/cols)*cellH,
				Rotation: jitter(r, 6),
			})
		}
	}
	return out
}

type rect struct{ x, y, w, h float64 }

func overlaps(a rect, used []rect) bool {
	for _, b := range used {
		if a.x < b.x+b.w && a.x+a.w > b.x && a.y < b.y+b.h && a.y+a.h > b.y {
			return true
		}
	}
	return false
}

// Random returns the drop position of a new card on a wall of size (ww, wh).
func Random(ww, wh float64, r Source) Position {
	r = orGlobal(r)
	x := r.Float64()*math.Max(50, ww-220) + 10
	y := r.Float64()*math.Max(50, wh-270) + 10
	return Position{X: x, Y: y, Rotation: jitter(r, 20)}
}

// Apply arranges every card of w with template t, in z-order.
func Apply(w *compose.Wall, t Template, r Source) {
	ps := Positions(t, len(w.Cards), w.Width, w.Height, compose.CardWidth, compose.CardHeight, r)
	for i, c := range w.Cards {
		c.X, c.Y, c.Rotation = ps[i].X, ps[i].Y, ps[i].Rotation
	}
	klog.V(1).Infof("arranged %d cards as %s", len(w.Cards), t)
}

// Place moves c to a random spot on w.
func Place(w *compose.Wall, c *compose.Card, r Source) {
	p := Random(w.Width, w.Height, r)
	c.X, c.Y, c.Rotation = p.X, p.Y, p.Rotation
}

package compose

import (
	"sort"

	"github.com/gogpu/gg"
)

// glyph is a decoration drawn with the text pipeline. Sizes and positions
// are logical pixels at scale 1.
type glyph struct {
	text  string
	size  float64
	color string
}

type framePreset struct {
	base   string
	stops  []stop
	border string

	left  glyph
	right glyph
	// inset is the distance of the right glyph from the right edge.
	inset float64
}

const (
	frameBorderWidth = 2
	decorationY      = PaddingTop + PhotoHeight + 12
	decorationInk    = "#000000"
)

func hex(s string) gg.RGBA { return mustColor(s) }

func twoStop(top, bottom string) []stop {
	return []stop{{0, hex(top)}, {1, hex(bottom)}}
}

var framePresets = map[string]framePreset{
	"bear": {
		stops: twoStop("#FFF5E6", "#FFE4C4"), border: "#DEB887",
		left: glyph{text: "🧸", size: 16}, right: glyph{text: "🐾 🐾", size: 9}, inset: 35,
	},
	"rainbow": {
		base: "#FFFFFF",
		stops: []stop{
			{0, hex("rgba(255, 154, 158, 0.3)")},
			{0.2, hex("rgba(254, 207, 239, 0.3)")},
			{0.4, hex("rgba(255, 236, 210, 0.3)")},
			{0.6, hex("rgba(168, 237, 234, 0.3)")},
			{0.8, hex("rgba(210, 153, 194, 0.3)")},
			{1, hex("rgba(254, 249, 215, 0.3)")},
		},
		border: "#fecfef",
		left:   glyph{text: "🌈", size: 16}, right: glyph{text: "✨💖", size: 11}, inset: 35,
	},
	"flower": {
		stops: twoStop("#FFE4EC", "#FFCCD5"), border: "#FFB6C1",
		left: glyph{text: "🌸", size: 16}, right: glyph{text: "🌸", size: 14}, inset: 25,
	},
	"ocean": {
		stops: twoStop("#E0F7FA", "#B2EBF2"), border: "#80DEEA",
		left: glyph{text: "🐚", size: 16}, right: glyph{text: "🐠", size: 14}, inset: 25,
	},
	"candy": {
		stops: twoStop("#FFF0F5", "#FFD1DC"), border: "#FFB3C6",
		left: glyph{text: "🍬", size: 16}, right: glyph{text: "🍭", size: 14}, inset: 25,
	},
	"lavender": {
		stops: twoStop("#F3E5F5", "#E1BEE7"), border: "#CE93D8",
		left: glyph{text: "💜", size: 16}, right: glyph{text: "✿", size: 14, color: "#9C27B0"}, inset: 25,
	},
	"lemon": {
		stops: twoStop("#FFFDE7", "#FFF59D"), border: "#FFE082",
		left: glyph{text: "🍋", size: 16}, right: glyph{text: "☀️", size: 14}, inset: 25,
	},
	"mint": {
		stops: twoStop("#E8F5E9", "#C8E6C9"), border: "#A5D6A7",
		left: glyph{text: "🍃", size: 16}, right: glyph{text: "🌿", size: 14}, inset: 25,
	},
}

// FramePresets returns the names of the built-in frames.
func FramePresets() []string {
	names := make([]string, 0, len(framePresets))
	for n := range framePresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsFramePreset reports whether name is a built-in frame.
func IsFramePreset(name string) bool {
	_, ok := framePresets[name]
	return ok
}

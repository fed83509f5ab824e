package compose

import "sort"

// placed is a wall decoration at a fraction of the wall size.
type placed struct {
	text string
	size float64
	fx   float64
	fy   float64
}

type backgroundPreset struct {
	stops []stop
	decor []placed
}

const wallDecorationInk = "rgba(255, 255, 255, 0.8)"

// decor returns the four shared decoration spots plus a preset-specific fifth.
func decor(a, b, c, d placed, e placed) []placed {
	a.fx, a.fy = 0.15, 0.1
	b.fx, b.fy = 0.8, 0.25
	c.fx, c.fy = 0.1, 0.3
	d.fx, d.fy = 0.9, 0.5
	return []placed{a, b, c, d, e}
}

var backgroundPresets = map[string]backgroundPreset{
	"starry": {
		stops: []stop{{0, hex("#1a1a2e")}, {0.5, hex("#16213e")}, {1, hex("#0f3460")}},
		decor: decor(placed{text: "⭐", size: 20}, placed{text: "✨", size: 16}, placed{text: "🌟", size: 18}, placed{text: "💫", size: 14},
			placed{text: "🌙", size: 35, fx: 0.92, fy: 0.08}),
	},
	"cloud": {
		stops: []stop{{0, hex("#89CFF0")}, {0.5, hex("#A7D8FF")}, {1, hex("#C9E4FF")}},
		decor: decor(placed{text: "☁️", size: 30}, placed{text: "☁️", size: 25}, placed{text: "☁️", size: 35}, placed{text: "🦋", size: 20},
			placed{text: "🌤️", size: 28, fx: 0.9, fy: 0.05}),
	},
	"sunset": {
		stops: []stop{{0, hex("#FF6B6B")}, {0.3, hex("#FF8E53")}, {0.6, hex("#FFA726")}, {1, hex("#FFD54F")}},
		decor: decor(placed{text: "🌅", size: 24}, placed{text: "🌇", size: 20}, placed{text: "🐦", size: 18}, placed{text: "🐦", size: 16},
			placed{text: "☀️", size: 35, fx: 0.9, fy: 0.15}),
	},
	"aurora": {
		stops: []stop{{0, hex("#0D0D2B")}, {0.2, hex("#1A1A4E")}, {0.5, hex("#4A148C")}, {0.7, hex("#7B1FA2")}, {1, hex("#E040FB")}},
		decor: decor(placed{text: "⭐", size: 20}, placed{text: "✨", size: 16}, placed{text: "💫", size: 14}, placed{text: "🌟", size: 18},
			placed{text: "🌌", size: 30, fx: 0.92, fy: 0.08}),
	},
	"beach": {
		stops: []stop{
			{0, hex("#87CEEB")}, {0.3, hex("#87CEEB")},
			{0.3, hex("#00BCD4")}, {0.5, hex("#00ACC1")},
			{0.5, hex("#F5DEB3")}, {1, hex("#DEB887")},
		},
		decor: decor(placed{text: "🐚", size: 24}, placed{text: "🦀", size: 20}, placed{text: "⛱️", size: 22}, placed{text: "🐠", size: 18},
			placed{text: "☀️", size: 28, fx: 0.9, fy: 0.05}),
	},
	"forest": {
		stops: []stop{{0, hex("#1B5E20")}, {0.3, hex("#2E7D32")}, {0.5, hex("#388E3C")}, {0.7, hex("#43A047")}, {1, hex("#66BB6A")}},
		decor: decor(placed{text: "🌲", size: 28}, placed{text: "🌳", size: 24}, placed{text: "🍄", size: 20}, placed{text: "🦊", size: 18},
			placed{text: "🦉", size: 22, fx: 0.92, fy: 0.08}),
	},
	"cherry": {
		stops: []stop{{0, hex("#FCE4EC")}, {0.3, hex("#F8BBD9")}, {0.6, hex("#F48FB1")}, {1, hex("#F06292")}},
		decor: decor(placed{text: "🌸", size: 22}, placed{text: "🌸", size: 18}, placed{text: "🌸", size: 20}, placed{text: "🎀", size: 16},
			placed{text: "💮", size: 24, fx: 0.92, fy: 0.05}),
	},
	"meadow": {
		stops: []stop{{0, hex("#87CEEB")}, {0.4, hex("#87CEEB")}, {0.4, hex("#98FB98")}, {1, hex("#7CFC00")}},
		decor: decor(placed{text: "🌼", size: 24}, placed{text: "🌸", size: 20}, placed{text: "🌷", size: 22}, placed{text: "🦋", size: 18},
			placed{text: "🌻", size: 26, fx: 0.95, fy: 0.05}),
	},
}

// BackgroundPresets returns the names of the built-in wall backgrounds.
func BackgroundPresets() []string {
	names := make([]string, 0, len(backgroundPresets))
	for n := range backgroundPresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsBackgroundPreset reports whether name is a built-in wall background.
func IsBackgroundPreset(name string) bool {
	_, ok := backgroundPresets[name]
	return ok
}

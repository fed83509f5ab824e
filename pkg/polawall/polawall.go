// Package polawall builds polaroid photo walls from directories of photos.
package polawall

import (
	"errors"
	"time"

	"github.com/tstromberg/polawall/pkg/layout"
)

// ErrExport is wrapped by every failure to encode or write an export.
var ErrExport = errors.New("export failed")

// Config holds configuration for polawall.
type Config struct {
	InDirs []string
	OutDir string

	// WallPath is an optional YAML wall document.
	WallPath string

	// Width and Height size the wall when no document sets them.
	Width  float64
	Height float64

	// Format is "png" or "jpeg"; Quality applies to jpeg.
	Format  string
	Quality int

	DecodeTimeout time.Duration

	// Cards and Photos also write each card, and each bare photo, to its own file.
	Cards  bool
	Photos bool

	CopyOriginals bool

	// Rand drives random placement. Nil uses the global source.
	Rand layout.Source
}

const (
	defaultWidth   = 1200
	defaultHeight  = 800
	defaultQuality = 90
)

func (c *Config) wallSize() (float64, float64) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

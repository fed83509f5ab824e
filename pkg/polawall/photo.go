package polawall

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/tstromberg/polawall/pkg/compose"
)

// Photo is a photo found on disk, along with its metadata.
type Photo struct {
	InPath  string
	RelPath string
	ModTime time.Time

	Taken       time.Time
	Title       string
	Description string
	Keywords    []string
}

// ID returns the card ID used for this photo: its relative path without
// extension, lowercased, with anything other than letters and digits
// replaced by dashes.
func (p *Photo) ID() string {
	return slug(strings.TrimSuffix(p.RelPath, filepath.Ext(p.RelPath)))
}

// Date returns the card date of the photo: when it was taken, or when it
// was last modified.
func (p *Photo) Date() string {
	t := p.Taken
	if t.IsZero() {
		t = p.ModTime
	}
	if t.IsZero() {
		return ""
	}
	return t.Format(compose.DateFormat)
}

// Caption returns the title of the photo, if it has one.
func (p *Photo) Caption() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Description
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

package polawall

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"k8s.io/klog/v2"

	"github.com/tstromberg/polawall/pkg/compose"
	"github.com/tstromberg/polawall/pkg/crop"
	"github.com/tstromberg/polawall/pkg/filter"
	"github.com/tstromberg/polawall/pkg/layout"
)

// DefaultFrame is the frame of cards that do not choose one.
var DefaultFrame = "bear"

// An Assembly is a wall assembled from a document and the photos on disk.
type Assembly struct {
	Wall   *compose.Wall
	Doc    *Document
	Fonts  *compose.FontBook
	Photos []*Photo

	// Sources maps card IDs to the photo they show.
	Sources map[string]*Photo
}

// Ingest prepares an uploaded photo for a card: the largest centered
// square, run through the filter k.
func Ingest(img image.Image, k filter.Kind) image.Image {
	sq := crop.SquareCentered(img)
	if k == filter.Original {
		return sq
	}
	return filter.Apply(sq, k)
}

// Collect assembles the wall described by c.
func Collect(c *Config) (*Assembly, error) {
	klog.Infof("collect: %v -> %s", c.InDirs, c.OutDir)

	d, err := loadDocument(c.WallPath)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	fb, err := loadFonts(d)
	if err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}

	ps, err := Find(c.InDirs, c.OutDir)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	a := &Assembly{Doc: d, Fonts: fb, Photos: ps, Sources: map[string]*Photo{}}
	byPath := map[string]*Photo{}
	for _, p := range ps {
		if byPath[p.RelPath] != nil {
			klog.Warningf("%s: shadowed by %s", p.InPath, byPath[p.RelPath].InPath)
			continue
		}
		byPath[p.RelPath] = p
	}

	w, h := c.wallSize()
	if d.Width > 0 {
		w = d.Width
	}
	if d.Height > 0 {
		h = d.Height
	}
	a.Wall = compose.NewWall(w, h)
	a.Wall.Background = d.background()

	used := map[*Photo]bool{}
	for _, e := range d.Cards {
		p := byPath[e.Photo]
		if p == nil && e.Photo != "" {
			klog.Warningf("card %s: photo %s not found", e.ID, e.Photo)
		}
		if p != nil {
			used[p] = true
		}
		a.add(e, p, false, c.Rand)
	}

	for _, p := range ps {
		if used[p] || byPath[p.RelPath] != p {
			continue
		}
		a.add(CardEntry{ID: p.ID()}, p, true, c.Rand)
	}

	if d.Layout != "" {
		t, _ := layout.ParseTemplate(d.Layout)
		layout.Apply(a.Wall, t, c.Rand)
	}

	klog.Infof("assembled %d cards on a %vx%v wall", len(a.Wall.Cards), a.Wall.Width, a.Wall.Height)
	return a, nil
}

func loadDocument(path string) (*Document, error) {
	if path == "" {
		return &Document{}, nil
	}
	d, err := LoadDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		klog.Infof("%s does not exist, starting an empty wall", path)
		return &Document{dir: filepath.Dir(path)}, nil
	}
	return d, err
}

func loadFonts(d *Document) (*compose.FontBook, error) {
	if len(d.Fonts) == 0 && d.EmojiFont == "" {
		return compose.DefaultFontBook()
	}
	fb, err := compose.NewFontBook()
	if err != nil {
		return nil, err
	}
	for _, f := range d.Fonts {
		fam, err := compose.LoadFamily(d.resolve(f.Regular), d.resolve(f.Bold), d.resolve(f.Italic), d.resolve(f.BoldItalic))
		if err != nil {
			return nil, fmt.Errorf("family %s: %w", f.Family, err)
		}
		fb.Register(f.Family, fam)
		klog.V(1).Infof("registered font family %s", f.Family)
	}
	if d.EmojiFont != "" {
		if err := fb.LoadEmoji(d.resolve(d.EmojiFont)); err != nil {
			klog.Warningf("emoji glyphs will be skipped: %v", err)
		}
	}
	return fb, nil
}

// add puts a card for entry e, showing p, on top of the wall.
func (a *Assembly) add(e CardEntry, p *Photo, place bool, r layout.Source) {
	d := a.Doc
	k := d.Filter
	if e.Filter != nil {
		k = *e.Filter
	}

	var photo *compose.Bitmap
	if p != nil {
		photo = loadPhoto(p.InPath, k)
		if e.ID == "" {
			e.ID = p.ID()
		}
	}

	fill := d.Frame
	if e.Frame != nil {
		fill = *e.Frame
	}

	c := compose.NewCard(photo, d.frame(fill))
	if e.ID != "" && a.Wall.Card(e.ID) == nil {
		c.ID = e.ID
	}
	c.Style = e.Style.captionStyle(d.Caption.captionStyle(compose.DefaultCaptionStyle))

	c.SetCaption(e.Caption)
	c.SetDate(e.Date)
	if p != nil {
		if c.Caption == "" {
			c.SetCaption(p.Caption())
		}
		if c.Date == "" {
			c.SetDate(p.Date())
		}
	}

	c.X, c.Y, c.Rotation = e.X, e.Y, e.Rotation
	c.SetScale(e.Scale)
	a.Wall.Add(c)
	if place {
		layout.Place(a.Wall, c, r)
	}
	if p != nil {
		a.Sources[c.ID] = p
	}
	klog.V(1).Infof("card %s: photo=%v filter=%s frame=%s", c.ID, p != nil, k, c.Frame.Kind)
}

func loadPhoto(path string, k filter.Kind) *compose.Bitmap {
	img, err := imgio.Open(path)
	if err != nil {
		klog.Warningf("open %s: %v", path, err)
		return compose.FailedBitmap(err)
	}
	return compose.NewBitmap(Ingest(img, k))
}

func (d *Document) frame(f Fill) compose.FrameStyle {
	switch {
	case f.Image != "":
		return compose.CustomFrame(d.customFrame(f))
	case f.Color != "":
		return compose.SolidFrame(f.Color)
	case f.Preset != "":
		if !compose.IsFramePreset(f.Preset) {
			klog.Warningf("unknown frame %q, using white", f.Preset)
		}
		return compose.PresetFrame(f.Preset)
	}
	return compose.PresetFrame(DefaultFrame)
}

// customFrame loads a frame image, cropped when the fill says so.
func (d *Document) customFrame(f Fill) *compose.Bitmap {
	path := d.resolve(f.Image)
	img, err := imgio.Open(path)
	if err != nil {
		klog.Warningf("frame image %s: %v", path, err)
		return compose.FailedBitmap(err)
	}
	if f.Crop == nil {
		return compose.NewBitmap(img)
	}

	s := crop.Spec{
		Source:          img,
		RotationDegrees: f.Crop.Rotation,
		BoxX:            f.Crop.Box[0],
		BoxY:            f.Crop.Box[1],
		BoxWidth:        f.Crop.Box[2],
		BoxHeight:       f.Crop.Box[3],
		DisplayWidth:    f.Crop.Display[0],
		DisplayHeight:   f.Crop.Display[1],
	}
	if len(f.Crop.Viewport) == 2 {
		s.ViewportWidth, s.ViewportHeight = f.Crop.Viewport[0], f.Crop.Viewport[1]
	}
	out, err := crop.ToBox(s)
	if err != nil {
		klog.Warningf("crop %s: %v", path, err)
		return compose.FailedBitmap(err)
	}
	return compose.NewBitmap(out)
}

func (d *Document) background() compose.Background {
	f := d.Background
	switch {
	case f.Image != "":
		path := d.resolve(f.Image)
		img, err := imgio.Open(path)
		if err != nil {
			klog.Warningf("background image %s: %v", path, err)
			return compose.CustomBackground(compose.FailedBitmap(err))
		}
		return compose.CustomBackground(compose.NewBitmap(img))
	case f.Color != "":
		return compose.SolidBackground(f.Color)
	case f.Preset != "":
		if !compose.IsBackgroundPreset(f.Preset) {
			klog.Warningf("unknown background %q, using white", f.Preset)
		}
		return compose.PresetBackground(f.Preset)
	}
	return compose.SolidBackground("#FFFFFF")
}

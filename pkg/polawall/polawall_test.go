package polawall

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/tstromberg/polawall/pkg/compose"
	"github.com/tstromberg/polawall/pkg/filter"
)

type fixedRNG struct{ val float64 }

func (r fixedRNG) Float64() float64 { return r.val }

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	ic, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return ic.Width, ic.Height
}

func TestPhotoID(t *testing.T) {
	tests := []struct {
		rel, want string
	}{
		{"red.png", "red"},
		{"2024/Beach Day.JPG", "2024-beach-day"},
		{"a__b.webp", "a-b"},
		{"__x_.png", "x"},
	}
	for _, tc := range tests {
		if got := (&Photo{RelPath: tc.rel}).ID(); got != tc.want {
			t.Errorf("ID(%q) = %q, want %q", tc.rel, got, tc.want)
		}
	}
}

func TestPhotoDate(t *testing.T) {
	taken := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	mod := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		p    Photo
		want string
	}{
		{"taken", Photo{Taken: taken, ModTime: mod}, "2024.07.01"},
		{"modified", Photo{ModTime: mod}, "2025.01.02"},
		{"unknown", Photo{}, ""},
	}
	for _, tc := range tests {
		if got := tc.p.Date(); got != tc.want {
			t.Errorf("%s: Date = %q, want %q", tc.name, got, tc.want)
		}
	}

	if got := (&Photo{Title: "t", Description: "d"}).Caption(); got != "t" {
		t.Errorf("Caption = %q, want title", got)
	}
	if got := (&Photo{Description: "d"}).Caption(); got != "d" {
		t.Errorf("Caption = %q, want description", got)
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	white := color.White
	writePNG(t, filepath.Join(root, "a.png"), 4, 4, white)
	writePNG(t, filepath.Join(root, "sub", "b.PNG"), 4, 4, white)
	writePNG(t, filepath.Join(root, ".hidden", "c.png"), 4, 4, white)
	writePNG(t, filepath.Join(root, ".d.png"), 4, 4, white)
	writeFile(t, filepath.Join(root, "notes.txt"), "not a photo")

	ps, err := Find([]string{root})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	var got []string
	for _, p := range ps {
		got = append(got, p.RelPath)
		if p.ModTime.IsZero() {
			t.Errorf("%s: no mod time", p.RelPath)
		}
	}
	if want := []string{"a.png", "sub/b.PNG"}; !slices.Equal(got, want) {
		t.Errorf("found %v, want %v", got, want)
	}

	ps, err = Find([]string{root}, filepath.Join(root, "sub"))
	if err != nil {
		t.Fatalf("Find with skip: %v", err)
	}
	if len(ps) != 1 || ps[0].RelPath != "a.png" {
		t.Errorf("skipping sub found %d photos: %+v", len(ps), ps)
	}

	if _, err := Find([]string{filepath.Join(root, "missing")}); err == nil {
		t.Errorf("Find(missing) succeeded")
	}
}

const sampleDoc = `width: 1000
height: 700
background: {preset: starry}
filter: vivid
frame: {preset: mint}
caption: {font: "'Nunito', sans-serif", color: "#333333"}
cards:
  - photo: red.png
    filter: bw
    frame: {color: "#FF0000"}
    caption: hello
    date: "2024.07.01"
    x: 40
    y: 60
    rotation: -5
    scale: 1.5
  - photo: blue.png
    filter: original
    frame: {image: paper.png, crop: {rotation: 0, box: [0, 0, 10, 10], display: [20, 20]}}
    x: 300
    y: 200
  - id: ghost
    photo: missing.png
    caption: boo
    style: {italic: true}
`

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.yaml")
	writeFile(t, path, sampleDoc)

	d, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if d.Width != 1000 || d.Height != 700 || d.Background.Preset != "starry" {
		t.Errorf("wall = %vx%v %+v", d.Width, d.Height, d.Background)
	}
	if d.Filter != filter.Vivid {
		t.Errorf("filter = %v, want vivid", d.Filter)
	}
	if len(d.Cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(d.Cards))
	}
	if c := d.Cards[0]; c.Filter == nil || *c.Filter != filter.BlackWhite || c.Scale != 1.5 || c.Frame.Color != "#FF0000" {
		t.Errorf("card 0 = %+v", c)
	}
	if c := d.Cards[1]; c.Filter == nil || *c.Filter != filter.Original || !slices.Equal(c.Frame.Crop.Box, []float64{0, 0, 10, 10}) {
		t.Errorf("card 1 = %+v", c)
	}
	if c := d.Cards[2]; c.Filter != nil || c.Style == nil || !c.Style.Italic {
		t.Errorf("card 2 = %+v", c)
	}

	// cards survive a save and reload
	out := filepath.Join(dir, "saved.yaml")
	if err := d.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	d2, err := LoadDocument(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(d, d2) {
		t.Errorf("reloaded document differs:\n%+v\n%+v", d, d2)
	}

	if _, err := LoadDocument(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing document: err = %v, want ErrNotExist", err)
	}
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", ``, ""},
		{"negative size", `width: -1`, "negative"},
		{"unknown layout", `layout: mosaic`, "unknown layout"},
		{"unknown filter", `filter: sepia`, "unknown filter"},
		{"two fills", `frame: {preset: bear, color: "#fff"}`, "only one"},
		{"bad color", `background: {color: "hsl(1,2,3)"}`, "background"},
		{"background crop", `background: {image: a.png, crop: {box: [0,0,1,1], display: [1,1]}}`, "only supported on frames"},
		{"crop without image", `frame: {crop: {box: [0,0,1,1], display: [1,1]}}`, "requires an image"},
		{"short box", `frame: {image: a.png, crop: {box: [0,0,1], display: [1,1]}}`, "want 4"},
		{"font without file", `fonts: [{family: Nunito}]`, "required"},
		{"duplicate ids", "cards:\n  - id: a\n  - id: a\n", "duplicate"},
		{"bad card style", "cards:\n  - style: {color: nope}\n", "card 0 style"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "wall.yaml")
			writeFile(t, path, tc.doc)
			_, err := LoadDocument(path)
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestDocumentEntry(t *testing.T) {
	d := &Document{Cards: []CardEntry{{ID: "a"}, {Photo: "b.png"}}}
	d.Entry("a", "").Caption = "one"
	d.Entry("b", "b.png").Caption = "two"
	d.Entry("c", "c.png").Caption = "three"

	want := []CardEntry{
		{ID: "a", Caption: "one"},
		{Photo: "b.png", Caption: "two"},
		{ID: "c", Photo: "c.png", Caption: "three"},
	}
	if !reflect.DeepEqual(d.Cards, want) {
		t.Errorf("cards = %+v, want %+v", d.Cards, want)
	}
}

// testWall lays out an input directory and wall document for Collect.
func testWall(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writePNG(t, filepath.Join(in, "red.png"), 40, 20, color.RGBA{255, 0, 0, 255})
	writePNG(t, filepath.Join(in, "blue.png"), 20, 20, color.RGBA{0, 0, 255, 255})
	writePNG(t, filepath.Join(in, "green.png"), 30, 30, color.RGBA{0, 255, 0, 255})
	writePNG(t, filepath.Join(dir, "paper.png"), 20, 20, color.RGBA{250, 240, 220, 255})

	doc := filepath.Join(dir, "wall.yaml")
	writeFile(t, doc, sampleDoc)

	return &Config{
		InDirs:   []string{in},
		OutDir:   filepath.Join(dir, "out"),
		WallPath: doc,
		Rand:     fixedRNG{0},
	}
}

func TestCollect(t *testing.T) {
	c := testWall(t)
	a, err := Collect(c)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	w := a.Wall
	if w.Width != 1000 || w.Height != 700 {
		t.Errorf("wall size = %vx%v, want 1000x700", w.Width, w.Height)
	}
	if w.Background.Kind != compose.FillPreset || w.Background.Preset != "starry" {
		t.Errorf("background = %+v", w.Background)
	}

	var ids []string
	for _, card := range w.Cards {
		ids = append(ids, card.ID)
	}
	if want := []string{"red", "blue", "ghost", "green"}; !slices.Equal(ids, want) {
		t.Fatalf("cards = %v, want %v", ids, want)
	}

	red := w.Card("red")
	if red.Caption != "hello" || red.Date != "2024.07.01" || red.Scale != 1.5 || red.X != 40 || red.Y != 60 || red.Rotation != -5 {
		t.Errorf("red = %+v", red)
	}
	if red.Frame.Kind != compose.FillSolid || red.Frame.Color != "#FF0000" {
		t.Errorf("red frame = %+v", red.Frame)
	}
	if red.Style.Color != "#333333" || red.Style.FontFamily != "'Nunito', sans-serif" {
		t.Errorf("red style = %+v", red.Style)
	}
	img, err := red.Photo.Decode(context.Background())
	if err != nil {
		t.Fatalf("red photo: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Errorf("red photo bounds = %v, want a 20x20 square", img.Bounds())
	}
	// red through the black and white filter
	if g := color.NRGBAModel.Convert(img.At(10, 10)).(color.NRGBA); g.R < 75 || g.R > 77 || g.R != g.G || g.G != g.B {
		t.Errorf("red photo pixel = %v, want gray 76", g)
	}

	blue := w.Card("blue")
	if blue.Frame.Kind != compose.FillCustom {
		t.Fatalf("blue frame = %+v", blue.Frame)
	}
	frame, err := blue.Frame.Image.Decode(context.Background())
	if err != nil {
		t.Fatalf("blue frame: %v", err)
	}
	if frame.Bounds().Dx() != 20 || frame.Bounds().Dy() != 20 {
		t.Errorf("cropped frame bounds = %v, want 20x20", frame.Bounds())
	}

	ghost := w.Card("ghost")
	if ghost.Photo != nil || ghost.Caption != "boo" || !ghost.Style.Italic {
		t.Errorf("ghost = %+v", ghost)
	}
	if ghost.Frame.Kind != compose.FillPreset || ghost.Frame.Preset != "mint" {
		t.Errorf("ghost frame = %+v", ghost.Frame)
	}

	// new photos are placed at random with the document defaults
	green := w.Card("green")
	if green.X != 10 || green.Y != 10 || green.Rotation != -10 {
		t.Errorf("green at (%v,%v) rot %v", green.X, green.Y, green.Rotation)
	}
	if green.Date == "" {
		t.Errorf("green has no date")
	}

	if a.Sources["red"] == nil || a.Sources["green"] == nil || a.Sources["ghost"] != nil {
		t.Errorf("sources = %v", a.Sources)
	}
}

func TestCollectLayout(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 8, color.White)
	writePNG(t, filepath.Join(dir, "b.png"), 8, 8, color.White)
	doc := filepath.Join(dir, "wall.yaml")
	writeFile(t, doc, "layout: row\n")

	a, err := Collect(&Config{InDirs: []string{dir}, WallPath: doc, Rand: fixedRNG{0.5}})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if a.Wall.Width != 1200 || a.Wall.Height != 800 {
		t.Errorf("default size = %vx%v", a.Wall.Width, a.Wall.Height)
	}
	for _, c := range a.Wall.Cards {
		if c.Y != 280 || c.Rotation != 0 {
			t.Errorf("%s at y=%v rot %v, want a row at y=280", c.ID, c.Y, c.Rotation)
		}
		if c.Frame.Preset != DefaultFrame {
			t.Errorf("%s frame = %+v", c.ID, c.Frame)
		}
	}
}

func TestCollectMissingDocument(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 8, color.White)
	a, err := Collect(&Config{InDirs: []string{dir}, WallPath: filepath.Join(dir, "none.yaml"), Width: 500, Height: 400})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(a.Wall.Cards) != 1 || a.Wall.Width != 500 {
		t.Errorf("wall = %d cards, %vx%v", len(a.Wall.Cards), a.Wall.Width, a.Wall.Height)
	}
}

func TestCollectIgnoresOutput(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 8, 8, color.White)
	c := &Config{InDirs: []string{in}, OutDir: filepath.Join(in, "out"), Cards: true, Rand: fixedRNG{0}}

	for run := 1; run <= 3; run++ {
		a, err := Collect(c)
		if err != nil {
			t.Fatalf("run %d: Collect: %v", run, err)
		}
		var ids []string
		for _, card := range a.Wall.Cards {
			ids = append(ids, card.ID)
		}
		if want := []string{"a"}; !slices.Equal(ids, want) {
			t.Fatalf("run %d: cards = %v, want %v", run, ids, want)
		}
		if err := Render(context.Background(), c, a); err != nil {
			t.Fatalf("run %d: Render: %v", run, err)
		}
	}
	if _, err := os.Stat(filepath.Join(c.OutDir, "cards", "a.png")); err != nil {
		t.Errorf("card export missing: %v", err)
	}
}

func TestRender(t *testing.T) {
	c := testWall(t)
	c.Cards = true
	c.Photos = true
	c.CopyOriginals = true

	a, err := Collect(c)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if err := Render(context.Background(), c, a); err != nil {
		t.Fatalf("Render: %v", err)
	}

	tests := []struct {
		path string
		w, h int
	}{
		{"wall.png", 2000, 1400},
		{"cards/red.png", 510, 720},
		{"cards/ghost.png", 340, 480},
		{"photos/red.png", 450, 540},
		{"photos/green.png", 300, 360},
	}
	for _, tc := range tests {
		w, h := imageSize(t, filepath.Join(c.OutDir, tc.path))
		if w != tc.w || h != tc.h {
			t.Errorf("%s = %dx%d, want %dx%d", tc.path, w, h, tc.w, tc.h)
		}
	}

	if _, err := os.Stat(filepath.Join(c.OutDir, "photos", "ghost.png")); !os.IsNotExist(err) {
		t.Errorf("photo written for a card without one: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.OutDir, "originals", "red.png")); err != nil {
		t.Errorf("original not copied: %v", err)
	}

	// a second render leaves the up to date originals alone
	if err := Render(context.Background(), c, a); err != nil {
		t.Fatalf("second Render: %v", err)
	}
}

func TestRenderJPEG(t *testing.T) {
	c := testWall(t)
	c.Format = "jpeg"
	c.Quality = 70
	a, err := Collect(c)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if err := Render(context.Background(), c, a); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if w, h := imageSize(t, filepath.Join(c.OutDir, "wall.jpg")); w != 2000 || h != 1400 {
		t.Errorf("wall.jpg = %dx%d", w, h)
	}
}

func TestRenderExportFailure(t *testing.T) {
	c := testWall(t)
	a, err := Collect(c)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// a file where the output directory should be
	blocker := filepath.Join(filepath.Dir(c.OutDir), "blocker")
	writeFile(t, blocker, "")
	c.OutDir = filepath.Join(blocker, "out")
	if err := Render(context.Background(), c, a); err == nil {
		t.Errorf("Render into a file succeeded")
	}

	if _, _, err := Encoder("gif", 0); err == nil {
		t.Errorf("Encoder(gif) succeeded")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "")
	enc, _, err := Encoder("png", 0)
	if err != nil {
		t.Fatalf("Encoder: %v", err)
	}
	err = save(filepath.Join(blocker, "x.png"), image.NewRGBA(image.Rect(0, 0, 1, 1)), enc)
	if !errors.Is(err, ErrExport) {
		t.Errorf("err = %v, want ErrExport", err)
	}
}

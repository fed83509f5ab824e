package manage

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tstromberg/polawall/pkg/compose"
	"github.com/tstromberg/polawall/pkg/polawall"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// form builds a multipart body with one file and some fields.
func form(t *testing.T, file string, data []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(file, "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeResponse(t *testing.T, resp *http.Response) image.Image {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func testServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	c := &polawall.Config{OutDir: dir}
	w := compose.NewWall(300, 200)
	card := compose.NewCard(compose.NewBitmap(image.NewRGBA(image.Rect(0, 0, 8, 8))), compose.PresetFrame("ocean"))
	card.ID = "one"
	w.Add(card)
	a := &polawall.Assembly{Wall: w}

	srv := httptest.NewServer(New(c, dir, a).Handler())
	t.Cleanup(srv.Close)
	return srv, dir
}

func TestFilterHandler(t *testing.T) {
	srv, _ := testServer(t)

	body, ct := form(t, "photo", pngBytes(t, 6, 4, color.RGBA{100, 150, 200, 255}), nil)
	resp, err := http.Post(srv.URL+"/api/filter?kind=cool", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	img := decodeResponse(t, resp)
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
		t.Errorf("bounds = %v, want 6x4", img.Bounds())
	}
	if got := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA); got != (color.NRGBA{90, 158, 230, 255}) {
		t.Errorf("pixel = %v, want cool (90,158,230)", got)
	}

	// a raw body works too
	resp, err = http.Post(srv.URL+"/api/filter?kind=bw", "image/png", bytes.NewReader(pngBytes(t, 3, 3, color.White)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	decodeResponse(t, resp)
}

func TestBadRequests(t *testing.T) {
	srv, _ := testServer(t)
	good := pngBytes(t, 4, 4, color.White)

	tests := []struct {
		name   string
		url    string
		file   string
		data   []byte
		fields map[string]string
		want   int
	}{
		{"unknown filter", "/api/filter?kind=sepia", "photo", good, nil, http.StatusBadRequest},
		{"not an image", "/api/filter?kind=vivid", "photo", []byte("hello"), nil, http.StatusBadRequest},
		{"wrong field", "/api/filter?kind=vivid", "picture", good, nil, http.StatusBadRequest},
		{"crop without box", "/api/crop", "image", good, map[string]string{"display": "4,4"}, http.StatusBadRequest},
		{"crop bad rotation", "/api/crop", "image", good, map[string]string{"box": "0,0,2,2", "display": "4,4", "rotation": "x"}, http.StatusBadRequest},
		{"card bad scale", "/api/card", "photo", good, map[string]string{"scale": "big"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := form(t, tc.file, tc.data, tc.fields)
			resp, err := http.Post(srv.URL+tc.url, ct, body)
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestCropHandler(t *testing.T) {
	srv, _ := testServer(t)

	body, ct := form(t, "image", pngBytes(t, 40, 30, color.RGBA{0, 0, 255, 255}), map[string]string{
		"box":      "5,5,20,10",
		"display":  "40,30",
		"viewport": "40,30",
		"rotation": "0",
	})
	resp, err := http.Post(srv.URL+"/api/crop", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	img := decodeResponse(t, resp)
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Errorf("bounds = %v, want 40x20", img.Bounds())
	}
}

func TestCardHandler(t *testing.T) {
	srv, _ := testServer(t)

	body, ct := form(t, "photo", pngBytes(t, 50, 30, color.RGBA{255, 0, 0, 255}), map[string]string{
		"filter":  "original",
		"frame":   "#0000FF",
		"caption": "hello",
		"scale":   "1.5",
	})
	resp, err := http.Post(srv.URL+"/api/card", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	img := decodeResponse(t, resp)
	if img.Bounds().Dx() != 510 || img.Bounds().Dy() != 720 {
		t.Fatalf("bounds = %v, want 510x720", img.Bounds())
	}
	// frame corner and photo center
	if got := color.RGBAModel.Convert(img.At(5, 5)).(color.RGBA); got.B < 250 || got.R > 5 {
		t.Errorf("frame pixel = %v, want blue", got)
	}
	if got := color.RGBAModel.Convert(img.At(255, 300)).(color.RGBA); got.R < 250 || got.B > 5 {
		t.Errorf("photo pixel = %v, want red", got)
	}
}

func TestWallHandler(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/wall")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if img := decodeResponse(t, resp); img.Bounds().Dx() != 600 || img.Bounds().Dy() != 400 {
		t.Errorf("wall bounds = %v, want 600x400", img.Bounds())
	}

	resp, err = http.Get(srv.URL + "/api/wall?card=one")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if img := decodeResponse(t, resp); img.Bounds().Dx() != 340 || img.Bounds().Dy() != 480 {
		t.Errorf("card bounds = %v, want 340x480", img.Bounds())
	}

	resp, err = http.Get(srv.URL + "/api/wall?card=two")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing card status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/wall", "text/plain", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/wall status = %d, want 405", resp.StatusCode)
	}
}

func TestWallHandlerWithoutWall(t *testing.T) {
	s := New(&polawall.Config{}, t.TempDir(), nil)
	rec := httptest.NewRecorder()
	s.WallHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/wall", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	s.SetAssembly(&polawall.Assembly{Wall: compose.NewWall(10, 10)})
	rec = httptest.NewRecorder()
	s.WallHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/wall", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	srv, dir := testServer(t)
	if err := os.WriteFile(filepath.Join(dir, "wall.png"), pngBytes(t, 2, 2, color.White), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := http.Get(srv.URL + "/wall.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if img := decodeResponse(t, resp); img.Bounds().Dx() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestFloats(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		want    []float64
		wantErr bool
	}{
		{"1,2,3,4", 4, []float64{1, 2, 3, 4}, false},
		{" 1.5 , 2 ", 2, []float64{1.5, 2}, false},
		{"1,2", 4, nil, true},
		{"a,b", 2, nil, true},
		{"NaN,1", 2, nil, true},
		{"1,+Inf", 2, nil, true},
	}
	for _, tc := range tests {
		got, err := floats(tc.in, tc.n)
		if (err != nil) != tc.wantErr {
			t.Errorf("floats(%q) err = %v", tc.in, err)
			continue
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Errorf("floats(%q) = %v, want %v", tc.in, got, tc.want)
				break
			}
		}
	}
}

// inflatedPNG returns a small valid PNG whose header claims w x h pixels.
func inflatedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1, color.White)
	// signature (8), length (4), "IHDR" (4), then width and height
	binary.BigEndian.PutUint32(data[16:], w)
	binary.BigEndian.PutUint32(data[20:], h)
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestOversizedRequests(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name   string
		path   string
		file   string
		data   []byte
		fields map[string]string
	}{
		{
			name:   "crop box",
			path:   "/api/crop",
			file:   "image",
			data:   pngBytes(t, 8, 8, color.White),
			fields: map[string]string{"box": "0,0,20000,20000", "display": "8,8"},
		},
		{
			name: "declared image size",
			path: "/api/filter?kind=bw",
			file: "photo",
			data: inflatedPNG(t, 50000, 50000),
		},
		{
			name:   "declared crop source size",
			path:   "/api/crop",
			file:   "image",
			data:   inflatedPNG(t, 50000, 50000),
			fields: map[string]string{"box": "0,0,10,10", "display": "8,8"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := form(t, tc.file, tc.data, tc.fields)
			resp, err := http.Post(srv.URL+tc.path, ct, body)
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusRequestEntityTooLarge {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
			}
		})
	}
}

// Package manage provides HTTP handlers for exporting photos, cards and walls.
package manage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/polawall/pkg/compose"
	"github.com/tstromberg/polawall/pkg/crop"
	"github.com/tstromberg/polawall/pkg/filter"
	"github.com/tstromberg/polawall/pkg/polawall"
)

// MaxUpload is the largest accepted upload, in bytes.
var MaxUpload int64 = 32 << 20

// Server serves exports of a wall.
type Server struct {
	c    *polawall.Config
	path string

	mu sync.RWMutex
	a  *polawall.Assembly
}

// New creates a new server for the wall in a, serving files from path.
func New(c *polawall.Config, path string, a *polawall.Assembly) *Server {
	server := &Server{
		c:    c,
		path: path,
		a:    a,
	}
	return server
}

// SetAssembly replaces the wall being served.
func (s *Server) SetAssembly(a *polawall.Assembly) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a = a
}

func (s *Server) assembly() *polawall.Assembly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.a
}

// Handler returns a mux with every endpoint, and the output directory at /.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServer(http.Dir(s.path)))
	mux.HandleFunc("POST /api/filter", s.FilterHandler())
	mux.HandleFunc("POST /api/crop", s.CropHandler())
	mux.HandleFunc("POST /api/card", s.CardHandler())
	mux.HandleFunc("GET /api/wall", s.WallHandler())
	return mux
}

// FilterHandler returns the uploaded photo run through ?kind=.
func (s *Server) FilterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k, err := filter.ParseKind(r.URL.Query().Get("kind"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		img, err := s.upload(r, "photo")
		if err != nil {
			http.Error(w, err.Error(), status(err, http.StatusBadRequest))
			return
		}
		klog.V(1).Infof("filter %s on %v", k, img.Bounds())
		s.write(w, filter.Apply(img, k))
	}
}

// CropHandler crops the uploaded image with the box drawn in a crop dialog.
// Form fields: rotation, box=x,y,w,h, viewport=w,h and display=w,h.
func (s *Server) CropHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := s.upload(r, "image")
		if err != nil {
			http.Error(w, err.Error(), status(err, http.StatusBadRequest))
			return
		}

		spec := crop.Spec{Source: img}
		box, err := floats(r.FormValue("box"), 4)
		if err != nil {
			http.Error(w, fmt.Sprintf("box: %v", err), http.StatusBadRequest)
			return
		}
		display, err := floats(r.FormValue("display"), 2)
		if err != nil {
			http.Error(w, fmt.Sprintf("display: %v", err), http.StatusBadRequest)
			return
		}
		spec.BoxX, spec.BoxY, spec.BoxWidth, spec.BoxHeight = box[0], box[1], box[2], box[3]
		spec.DisplayWidth, spec.DisplayHeight = display[0], display[1]

		if v := r.FormValue("viewport"); v != "" {
			vp, err := floats(v, 2)
			if err != nil {
				http.Error(w, fmt.Sprintf("viewport: %v", err), http.StatusBadRequest)
				return
			}
			spec.ViewportWidth, spec.ViewportHeight = vp[0], vp[1]
		}
		if v := r.FormValue("rotation"); v != "" {
			if spec.RotationDegrees, err = strconv.ParseFloat(v, 64); err != nil {
				http.Error(w, fmt.Sprintf("rotation: %v", err), http.StatusBadRequest)
				return
			}
		}

		out, err := crop.ToBox(spec)
		if err != nil {
			klog.Warningf("crop: %v", err)
			http.Error(w, err.Error(), status(err, http.StatusBadRequest))
			return
		}
		s.write(w, out)
	}
}

// CardHandler renders a single card from an uploaded photo. Form fields:
// filter, frame (a preset name or a color), caption, date, scale, font,
// color and italic.
func (s *Server) CardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := s.upload(r, "photo")
		if err != nil {
			http.Error(w, err.Error(), status(err, http.StatusBadRequest))
			return
		}
		k, err := filter.ParseKind(r.FormValue("filter"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c := compose.NewCard(compose.NewBitmap(polawall.Ingest(img, k)), frameStyle(r.FormValue("frame")))
		c.ID = "upload"
		c.SetCaption(r.FormValue("caption"))
		c.SetDate(r.FormValue("date"))
		if v := r.FormValue("scale"); v != "" {
			sc, err := strconv.ParseFloat(v, 64)
			if err != nil {
				http.Error(w, fmt.Sprintf("scale: %v", err), http.StatusBadRequest)
				return
			}
			c.SetScale(sc)
		}
		if v := r.FormValue("font"); v != "" {
			c.Style.FontFamily = v
		}
		if v := r.FormValue("color"); v != "" {
			c.Style.Color = v
		}
		c.Style.Italic = r.FormValue("italic") == "true"

		out, err := compose.RenderCard(r.Context(), c, s.options())
		if err != nil {
			s.fail(w, err)
			return
		}
		s.write(w, out)
	}
}

// WallHandler renders the served wall, or one of its cards with ?card=.
func (s *Server) WallHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := s.assembly()
		if a == nil {
			http.Error(w, "no wall", http.StatusServiceUnavailable)
			return
		}

		var out *image.RGBA
		var err error
		if id := r.URL.Query().Get("card"); id != "" {
			c := a.Wall.Card(id)
			if c == nil {
				http.Error(w, fmt.Sprintf("no card %q", id), http.StatusNotFound)
				return
			}
			out, err = compose.RenderCard(r.Context(), c, a.Options(s.c))
		} else {
			out, err = compose.RenderWall(r.Context(), a.Wall, a.Options(s.c))
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		s.write(w, out)
	}
}

func (s *Server) options() *compose.Options {
	if a := s.assembly(); a != nil {
		return a.Options(s.c)
	}
	return &compose.Options{DecodeTimeout: s.c.DecodeTimeout}
}

// upload decodes the image in form field name, or the request body when the
// request is not multipart.
func (s *Server) upload(r *http.Request, name string) (image.Image, error) {
	var data []byte
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(MaxUpload); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		f, _, err := r.FormFile(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		defer f.Close()
		if data, err = io.ReadAll(io.LimitReader(f, MaxUpload)); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	} else {
		var err error
		if data, err = io.ReadAll(io.LimitReader(r.Body, MaxUpload)); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	}

	ctx := r.Context()
	if s.c.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.c.DecodeTimeout)
		defer cancel()
	}
	return compose.EncodedBitmap(data).Decode(ctx)
}

func (s *Server) write(w http.ResponseWriter, img image.Image) {
	enc, ext, err := polawall.Encoder(s.c.Format, s.c.Quality)
	if err != nil {
		s.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		s.fail(w, fmt.Errorf("%w: %w", polawall.ErrExport, err))
		return
	}
	w.Header().Set("Content-Type", mime.TypeByExtension(ext))
	if _, err := w.Write(buf.Bytes()); err != nil {
		klog.Warningf("write response: %v", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	klog.Errorf("export: %v", err)
	http.Error(w, err.Error(), status(err, http.StatusInternalServerError))
}

// status is 413 for anything that would not fit in the pixel budget, and
// fallback otherwise.
func status(err error, fallback int) int {
	if errors.Is(err, compose.ErrSurface) || errors.Is(err, compose.ErrTooLarge) || errors.Is(err, crop.ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return fallback
}

// frameStyle reads a frame form value: a color, or a preset name.
func frameStyle(v string) compose.FrameStyle {
	if v == "" {
		return compose.PresetFrame(polawall.DefaultFrame)
	}
	if _, err := compose.ParseColor(v); err == nil {
		return compose.SolidFrame(v)
	}
	return compose.PresetFrame(v)
}

// floats parses n comma-separated numbers.
func floats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("got %d values, want %d", len(parts), n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%q is not a finite number", p)
		}
		out[i] = v
	}
	return out, nil
}

package polawall

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/tstromberg/polawall/pkg/compose"
)

// Encoder returns the encoder and file extension for an export format.
func Encoder(format string, quality int) (imgio.Encoder, string, error) {
	if quality <= 0 {
		quality = defaultQuality
	}
	switch strings.ToLower(format) {
	case "", "png":
		return imgio.PNGEncoder(), ".png", nil
	case "jpg", "jpeg":
		return imgio.JPEGEncoder(quality), ".jpg", nil
	}
	return nil, "", fmt.Errorf("unknown format %q", format)
}

// Options returns the render options for c.
func (a *Assembly) Options(c *Config) *compose.Options {
	return &compose.Options{Fonts: a.Fonts, DecodeTimeout: c.DecodeTimeout}
}

// Render writes the exports of an assembly to c.OutDir. Failed exports are
// logged and skipped; the returned error joins them.
func Render(ctx context.Context, c *Config, a *Assembly) error {
	enc, ext, err := Encoder(c.Format, c.Quality)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	o := a.Options(c)
	wall, err := compose.RenderWall(ctx, a.Wall, o)
	if err != nil {
		return fmt.Errorf("render wall: %w", err)
	}

	var failed []error
	if err := save(filepath.Join(c.OutDir, "wall"+ext), wall, enc); err != nil {
		klog.Errorf("%v", err)
		failed = append(failed, err)
	}

	if c.Cards {
		failed = append(failed, writeCards(ctx, c, a, "cards", compose.RenderCard, enc, ext)...)
	}

	if c.Photos {
		failed = append(failed, writeCards(ctx, c, a, "photos", compose.RenderPhoto, enc, ext)...)
	}

	if c.CopyOriginals {
		if err := copyOriginals(c, a); err != nil {
			klog.Errorf("%v", err)
			failed = append(failed, err)
		}
	}

	klog.Infof("rendered %d cards to %s (%d failures)", len(a.Wall.Cards), c.OutDir, len(failed))
	return errors.Join(failed...)
}

type renderFunc func(context.Context, *compose.Card, *compose.Options) (*image.RGBA, error)

func writeCards(ctx context.Context, c *Config, a *Assembly, dir string, render renderFunc, enc imgio.Encoder, ext string) []error {
	var failed []error
	o := a.Options(c)
	for _, card := range a.Wall.Cards {
		if err := ctx.Err(); err != nil {
			return append(failed, err)
		}
		if dir == "photos" && card.Photo == nil {
			continue
		}

		img, err := render(ctx, card, o)
		if err != nil {
			err = fmt.Errorf("%s/%s: %w: %w", dir, card.ID, ErrExport, err)
			klog.Errorf("%v", err)
			failed = append(failed, err)
			continue
		}

		if err := save(filepath.Join(c.OutDir, dir, card.ID+ext), img, enc); err != nil {
			klog.Errorf("%v", err)
			failed = append(failed, err)
		}
	}
	return failed
}

func save(path string, img image.Image, enc imgio.Encoder) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w: %w", path, ErrExport, err)
	}
	klog.V(1).Infof("writing %s (%dx%d)", path, img.Bounds().Dx(), img.Bounds().Dy())
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("save %s: %w: %w", path, ErrExport, err)
	}
	return nil
}

// copyOriginals copies the photo of every card to originals/, skipping
// copies that are already up to date.
func copyOriginals(c *Config, a *Assembly) error {
	for _, card := range a.Wall.Cards {
		p := a.Sources[card.ID]
		if p == nil {
			continue
		}
		dest := filepath.Join(c.OutDir, "originals", filepath.FromSlash(p.RelPath))

		sst, err := os.Stat(p.InPath)
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		dst, err := os.Stat(dest)
		if err == nil && sst.Size() == dst.Size() && !sst.ModTime().After(dst.ModTime()) {
			klog.V(1).Infof("%s is up to date", dest)
			continue
		}

		klog.V(1).Infof("copying %s -> %s", p.InPath, dest)
		if err := copy.Copy(p.InPath, dest); err != nil {
			return fmt.Errorf("copy %s: %w: %w", p.InPath, ErrExport, err)
		}
	}
	return nil
}

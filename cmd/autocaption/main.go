// autocaption suggests captions for the cards of a wall using Google Gemini.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/barasher/go-exiftool"
	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/tstromberg/polawall/pkg/polawall"
)

var (
	dryRun    = flag.Bool("n", false, "dry-run mode, don't write captions")
	overwrite = flag.Bool("o", false, "overwrite existing captions")
	wallPath  = flag.String("wall", "", "YAML wall document to write captions to")
	model     = flag.String("model", polawall.CaptionModel, "Gemini model")
	exif      = flag.Bool("exif", false, "also store captions as the Headline of the photo files")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if len(flag.Args()) == 0 {
		klog.Exitf("No input directories provided. Usage: %s -wall <wall.yaml> <input_dir1> [input_dir2 ...]", os.Args[0])
	}

	if *wallPath == "" {
		klog.Exitf("--wall is a required flag")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GOOGLE_AI_API_KEY"),
	})
	if err != nil {
		klog.Exitf("genai: %v", err)
	}

	c := &polawall.Config{
		InDirs:   flag.Args(),
		WallPath: *wallPath,
	}

	a, err := polawall.Collect(c)
	if err != nil {
		klog.Exitf("unable to collect: %v", err)
	}

	var et *exiftool.Exiftool
	if *exif {
		et, err = exiftool.NewExiftool()
		if err != nil {
			klog.Exitf("exiftool: %v", err)
		}
		defer func() {
			if err := et.Close(); err != nil {
				klog.Errorf("Failed to close exiftool: %v", err)
			}
		}()
	}

	captioned := 0
	for _, card := range a.Wall.Cards {
		p := a.Sources[card.ID]
		if p == nil {
			continue
		}
		if !*overwrite && card.Caption != "" {
			klog.Infof("%s has a caption: %q", card.ID, card.Caption)
			continue
		}

		img, err := card.Photo.Decode(ctx)
		if err != nil {
			klog.Errorf("%s: %v", card.ID, err)
			continue
		}
		caption, err := polawall.AutoCaption(ctx, client.Models, *model, img)
		if err != nil {
			klog.Errorf("%s: %v", card.ID, err)
			continue
		}
		if caption == "" {
			klog.Warningf("%s: empty caption", card.ID)
			continue
		}

		klog.Infof("captioning %s: %q", p.InPath, caption)
		n := len(a.Doc.Cards)
		e := a.Doc.Entry(card.ID, p.RelPath)
		if len(a.Doc.Cards) > n {
			// keep the new card where it was placed
			e.X, e.Y, e.Rotation = card.X, card.Y, card.Rotation
		}
		e.Caption = caption
		captioned++

		if et == nil || *dryRun {
			continue
		}
		o := et.ExtractMetadata(p.InPath)
		o[0].SetString("Headline", caption)
		et.WriteMetadata(o)
		if o[0].Err != nil {
			klog.Errorf("Failed to write metadata for %s: %v", p.InPath, o[0].Err)
		}
	}

	if *dryRun {
		klog.Infof("dry run: %d captions not written", captioned)
		return
	}
	if err := a.Doc.Save(*wallPath); err != nil {
		klog.Exitf("save: %v", err)
	}
	klog.Infof("autocaption completed. Captioned %d of %d cards", captioned, len(a.Wall.Cards))
}

package polawall

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

var photoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// IsPhoto reports whether path has a photo extension.
func IsPhoto(path string) bool {
	return photoExts[strings.ToLower(filepath.Ext(path))]
}

// readMeta fills in the EXIF metadata of p.
func readMeta(p *Photo, et *exiftool.Exiftool) error {
	fis := et.ExtractMetadata(p.InPath)
	if len(fis) == 0 {
		return fmt.Errorf("no metadata for %q", p.InPath)
	}
	fi := fis[0]
	if fi.Err != nil {
		return fmt.Errorf("extract fail for %q: %w", p.InPath, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(2).Infof("%q=%v", k, v)
	}

	var err error
	p.Title, err = fi.GetString("Headline")
	if err != nil {
		klog.V(2).Infof("unable to get headline: %v", err)
	}
	p.Description, _ = fi.GetString("ImageDescription")
	p.Keywords, _ = fi.GetStrings("Keywords")

	ds, err := fi.GetString("DateTimeOriginal")
	if err != nil {
		klog.V(1).Infof("unable to get date time for %s: %v", p.InPath, err)
		return nil
	}

	p.Taken, err = time.Parse(exifDate, ds)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", ds, err)
	}
	return nil
}

// Find returns the photos under the given roots, in walk order. Hidden
// files and directories are skipped, and so are the skip directories (the
// output directory, so exports are never read back in). Metadata is read
// with exiftool when it is installed.
func Find(roots []string, skip ...string) ([]*Photo, error) {
	found := []*Photo{}

	skipped := map[string]bool{}
	for _, d := range skip {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("abs %s: %w", d, err)
		}
		skipped[abs] = true
	}

	et, err := exiftool.NewExiftool()
	if err != nil {
		klog.Warningf("exiftool unavailable, dates will come from file times: %v", err)
		et = nil
	} else {
		defer func() {
			if err := et.Close(); err != nil {
				klog.Errorf("close exiftool: %v", err)
			}
		}()
	}

	for _, root := range roots {
		err := godirwalk.Walk(root, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if path != root && strings.HasPrefix(filepath.Base(path), ".") {
					return godirwalk.SkipThis
				}
				if de.IsDir() {
					if abs, err := filepath.Abs(path); err == nil && skipped[abs] {
						klog.V(1).Infof("skipping %s", path)
						return godirwalk.SkipThis
					}
					return nil
				}
				if !IsPhoto(path) {
					return nil
				}

				klog.V(1).Infof("found %s", path)
				p := &Photo{InPath: path}
				rel, err := filepath.Rel(root, path)
				if err != nil {
					return err
				}
				p.RelPath = filepath.ToSlash(rel)

				fi, err := os.Stat(path)
				if err != nil {
					klog.Errorf("stat failure: %v", err)
					return err
				}
				p.ModTime = fi.ModTime()

				if et != nil {
					if err := readMeta(p, et); err != nil {
						klog.Warningf("metadata: %v", err)
					}
				}

				found = append(found, p)
				return nil
			},
		})
		if err != nil {
			return found, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	klog.Infof("found %d photos in %d directories", len(found), len(roots))
	return found, nil
}

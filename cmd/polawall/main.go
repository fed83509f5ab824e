// polawall renders a wall of polaroid cards from directories of photos.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/fsnotify/fsnotify"
	"github.com/tstromberg/polawall/pkg/manage"
	"github.com/tstromberg/polawall/pkg/polawall"
)

var (
	outDir        = flag.String("out", "", "Location of output directory")
	wallPath      = flag.String("wall", "", "YAML wall document (optional)")
	width         = flag.Float64("width", 1200, "wall width when the document does not set one")
	height        = flag.Float64("height", 800, "wall height when the document does not set one")
	format        = flag.String("format", "png", "export format: png or jpeg")
	quality       = flag.Int("quality", 90, "jpeg quality")
	cards         = flag.Bool("cards", true, "also export each card to cards/")
	photos        = flag.Bool("photos", false, "also export each bare photo to photos/")
	originals     = flag.Bool("originals", false, "copy original photos to originals/")
	decodeTimeout = flag.Duration("decode-timeout", 10*time.Second, "give up on an image decode after this long")
	listen        = flag.Bool("listen", false, "serve content and export endpoints via HTTP")
	addr          = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	watchFlag     = flag.Bool("watch", false, "watch for changes to the input directories and re-render")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if len(flag.Args()) == 0 {
		klog.Exitf("usage: polawall --out <dir> [flags] <input dir> [input dir ...]")
	}

	if *outDir == "" {
		klog.Exitf("--out is a required flag")
	}

	c := &polawall.Config{
		InDirs:        flag.Args(),
		OutDir:        *outDir,
		WallPath:      *wallPath,
		Width:         *width,
		Height:        *height,
		Format:        *format,
		Quality:       *quality,
		DecodeTimeout: *decodeTimeout,
		Cards:         *cards,
		Photos:        *photos,
		CopyOriginals: *originals,
	}

	ctx := context.Background()
	a, err := build(ctx, c)
	if err != nil {
		klog.Exitf("build failed: %v", err)
	}

	s := manage.New(c, *outDir, a)

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(ctx, c, s); err != nil {
				klog.Exitf("watch failed: %v", err)
			}
		}()
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(s, *addr)
		}()
	}

	wg.Wait()
}

// build collects and renders the wall. Export failures are logged; only a
// wall that cannot be assembled or rendered at all is an error.
func build(ctx context.Context, c *polawall.Config) (*polawall.Assembly, error) {
	a, err := polawall.Collect(c)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	if err := polawall.Render(ctx, c, a); err != nil {
		klog.Errorf("render: %v", err)
	}
	return a, nil
}

// serve serves the output directory and export endpoints via HTTP
func serve(s *manage.Server, addr string) {
	klog.Infof("Listening on %s...", addr)
	err := http.ListenAndServe(addr, s.Handler())
	if err != nil {
		klog.Exitf("listen failed: %v", err)
	}
}

// watch watches the input directories and the wall document, and re-renders
// on changes
func watch(ctx context.Context, c *polawall.Config, s *manage.Server) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs, err := watchDirs(c)
	if err != nil {
		return err
	}
	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	out, err := filepath.Abs(c.OutDir)
	if err != nil {
		return fmt.Errorf("abs: %w", err)
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(event, out) {
				continue
			}
			klog.Infof("event: %s", event)
			if event.Has(fsnotify.Create) {
				// new directories need watching too
				if err := w.Add(event.Name); err == nil {
					klog.V(1).Infof("watching %s", event.Name)
				}
			}
			a, err := build(ctx, c)
			if err != nil {
				klog.Errorf("rebuild failed: %v", err)
				continue
			}
			s.SetAssembly(a)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

// watchDirs returns the input directories, their subdirectories and the
// directory of the wall document.
func watchDirs(c *polawall.Config) ([]string, error) {
	ps, err := polawall.Find(c.InDirs, c.OutDir)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	dirs := slices.Clone(c.InDirs)
	for _, p := range ps {
		dirs = append(dirs, filepath.Dir(p.InPath))
	}
	if c.WallPath != "" {
		dirs = append(dirs, filepath.Dir(c.WallPath))
	}
	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}

// relevant reports whether an event should trigger a rebuild.
func relevant(e fsnotify.Event, outDir string) bool {
	if !(e.Has(fsnotify.Write) || e.Has(fsnotify.Create) || e.Has(fsnotify.Rename) || e.Has(fsnotify.Remove)) {
		return false
	}
	if abs, err := filepath.Abs(e.Name); err == nil && strings.HasPrefix(abs, outDir+string(filepath.Separator)) {
		return false
	}
	return !strings.HasPrefix(filepath.Base(e.Name), ".")
}

package compose

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	// Decoders for uploaded and on-disk photos.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"
)

// Bitmap is an image that may still need decoding. Decoding happens once, in
// the background, and the result is shared by every caller.
type Bitmap struct {
	data   []byte
	decode func(io.Reader) (image.Image, string, error)
	// config, when set, reads the header so oversized images are rejected
	// before any pixels are allocated.
	config    func(io.Reader) (image.Config, string, error)
	maxPixels int

	once sync.Once
	done chan struct{}
	img  image.Image
	err  error
}

// NewBitmap wraps an already decoded image.
func NewBitmap(img image.Image) *Bitmap {
	b := &Bitmap{img: img, done: make(chan struct{})}
	if img == nil {
		b.err = fmt.Errorf("nil image: %w", ErrDecode)
	}
	b.once.Do(func() { close(b.done) })
	return b
}

// EncodedBitmap wraps encoded image bytes (JPEG, PNG or WebP). Images of
// more than DefaultMaxPixels are rejected with ErrTooLarge.
func EncodedBitmap(data []byte) *Bitmap {
	return LimitedBitmap(data, DefaultMaxPixels)
}

// LimitedBitmap is EncodedBitmap with a pixel budget of maxPixels.
func LimitedBitmap(data []byte, maxPixels int) *Bitmap {
	return &Bitmap{
		data:      data,
		decode:    image.Decode,
		config:    image.DecodeConfig,
		maxPixels: maxPixels,
		done:      make(chan struct{}),
	}
}

// FailedBitmap returns a bitmap whose decode always fails with err.
func FailedBitmap(err error) *Bitmap {
	b := &Bitmap{err: fmt.Errorf("%w: %w", ErrDecode, err), done: make(chan struct{})}
	b.once.Do(func() { close(b.done) })
	return b
}

// Decode returns the decoded image, waiting until it is ready or ctx is done.
func (b *Bitmap) Decode(ctx context.Context) (image.Image, error) {
	if b == nil {
		return nil, fmt.Errorf("no image: %w", ErrDecode)
	}

	b.once.Do(func() {
		go func() {
			defer close(b.done)
			if err := b.checkSize(); err != nil {
				b.err = err
				return
			}
			img, format, err := b.decode(bytes.NewReader(b.data))
			if err != nil {
				b.err = fmt.Errorf("%w: %w", ErrDecode, err)
				return
			}
			klog.V(2).Infof("decoded %s %v (%d bytes)", format, img.Bounds().Size(), len(b.data))
			b.img = img
		}()
	})

	select {
	case <-b.done:
		return b.img, b.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrDecodeTimeout, ctx.Err())
	}
}

func (b *Bitmap) checkSize() error {
	if b.config == nil || b.maxPixels <= 0 {
		return nil
	}
	cfg, format, err := b.config(bytes.NewReader(b.data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > b.maxPixels {
		return fmt.Errorf("%w: %s is %dx%d (limit %d pixels): %w", ErrDecode, format, cfg.Width, cfg.Height, b.maxPixels, ErrTooLarge)
	}
	return nil
}

// Ready reports whether Decode would return without waiting.
func (b *Bitmap) Ready() bool {
	if b == nil {
		return true
	}
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

package polawall

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"google.golang.org/genai"

	"github.com/tstromberg/polawall/pkg/compose"
)

// CaptionModel is the Gemini model used for captions.
var CaptionModel = "gemini-2.5-flash"

// captionSize is the edge length of the image sent for captioning.
const captionSize = 512

const captionPrompt = "Write a caption for this photo as it would be handwritten on the bottom " +
	"of a polaroid: at most 20 characters, no quotes, no hashtags, no trailing period. " +
	"Prefer a short phrase about the place, the moment or the mood over a description " +
	"of the contents. An emoji is fine if it fits. Reply with the caption only."

// Generator produces content. *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// AutoCaption suggests a caption for a card photo.
func AutoCaption(ctx context.Context, g Generator, model string, img image.Image) (string, error) {
	if b := img.Bounds(); max(b.Dx(), b.Dy()) > captionSize {
		k := float64(captionSize) / float64(max(b.Dx(), b.Dy()))
		img = transform.Resize(img, max(1, int(float64(b.Dx())*k)), max(1, int(float64(b.Dy())*k)), transform.Linear)
	}

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(85)(&buf, img); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(buf.Bytes(), "image/jpeg"),
		genai.NewPartFromText(captionPrompt),
	}
	resp, err := g.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	return CleanCaption(resp.Text()), nil
}

// CleanCaption trims a model reply down to a card caption.
func CleanCaption(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \t\"'“”")
	s = strings.TrimSuffix(s, ".")

	r := []rune(s)
	if len(r) > compose.MaxCaptionLen {
		r = r[:compose.MaxCaptionLen]
	}
	return strings.TrimSpace(string(r))
}

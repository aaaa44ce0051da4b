// Package thumbnail renders bounded previews for catalogued media.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned for media the generator has no preview path for.
var ErrUnsupported = errors.New("thumbnail: unsupported media type")

// Result is an encoded preview plus the source dimensions when known.
type Result struct {
	Data   []byte
	Width  *int
	Height *int
}

// Generator produces previews. Callers treat every error as "no preview".
type Generator interface {
	Generate(ctx context.Context, data []byte, mimeType string) (Result, error)
}

type Options struct {
	MaxWidth   int
	MaxHeight  int
	Quality    int
	FFmpegPath string
	Timeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = 400
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = 400
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 85
	}
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Thumbnailer resizes raster images in-process and extracts video frames with ffmpeg.
type Thumbnailer struct {
	opts   Options
	logger *zap.Logger
	frame  frameExtractor
}

func New(opts Options, logger *zap.Logger) *Thumbnailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Thumbnailer{
		opts:   opts,
		logger: logger.Named("Thumbnailer"),
		frame:  ffmpegExtractor{path: opts.FFmpegPath},
	}
}

// previewable lists the raster formats that get a resized preview.
var previewable = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

func (t *Thumbnailer) Generate(ctx context.Context, data []byte, mimeType string) (Result, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case previewable[mimeType]:
		return t.image(data)
	case strings.HasPrefix(mimeType, "video/"):
		return t.video(ctx, data)
	}
	return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
}

func (t *Thumbnailer) image(data []byte) (Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("read image header: %w", err)
	}
	width, height := cfg.Width, cfg.Height
	res := Result{Width: &width, Height: &height}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return res, fmt.Errorf("decode image: %w", err)
	}
	preview, err := t.encode(t.fit(src))
	if err != nil {
		return res, err
	}
	res.Data = preview
	return res, nil
}

func (t *Thumbnailer) video(ctx context.Context, data []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	frame, err := t.frame.Extract(ctx, data)
	if err != nil {
		return Result{}, err
	}
	src, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return Result{}, fmt.Errorf("decode video frame: %w", err)
	}
	preview, err := t.encode(t.fit(src))
	if err != nil {
		return Result{}, err
	}
	return Result{Data: preview}, nil
}

// fit shrinks src into the bounding box keeping aspect ratio. Smaller images
// are left as they are.
func (t *Thumbnailer) fit(src image.Image) image.Image {
	b := src.Bounds()
	if b.Dx() <= t.opts.MaxWidth && b.Dy() <= t.opts.MaxHeight {
		return src
	}
	return imaging.Fit(src, t.opts.MaxWidth, t.opts.MaxHeight, imaging.Lanczos)
}

// encode writes JPEG, or PNG when the preview carries transparency.
func (t *Thumbnailer) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	format := imaging.JPEG
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		format = imaging.PNG
	}
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(t.opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGenerateSmallImageKeepsSize(t *testing.T) {
	th := New(Options{}, nil)

	res, err := th.Generate(context.Background(), pngBytes(t, 10, 10, 255), "image/png")
	require.NoError(t, err)
	require.NotNil(t, res.Width)
	assert.Equal(t, 10, *res.Width)
	assert.Equal(t, 10, *res.Height)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 10, cfg.Width)
}

func TestGenerateLargeImageFitsBox(t *testing.T) {
	th := New(Options{MaxWidth: 400, MaxHeight: 400}, nil)

	res, err := th.Generate(context.Background(), pngBytes(t, 1600, 800, 255), "image/png")
	require.NoError(t, err)
	assert.Equal(t, 1600, *res.Width)
	assert.Equal(t, 800, *res.Height)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestGenerateTransparentImageStaysPNG(t *testing.T) {
	th := New(Options{}, nil)

	res, err := th.Generate(context.Background(), pngBytes(t, 4, 4, 100), "image/png")
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestGenerateRejectsUnsupported(t *testing.T) {
	th := New(Options{}, nil)

	_, err := th.Generate(context.Background(), []byte("<svg/>"), "image/svg+xml")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = th.Generate(context.Background(), []byte("ID3"), "audio/mpeg")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGenerateCorruptImage(t *testing.T) {
	th := New(Options{}, nil)
	_, err := th.Generate(context.Background(), []byte("not a png"), "image/png")
	assert.Error(t, err)
}

type stubFrames struct {
	frame []byte
	err   error
}

func (s stubFrames) Extract(context.Context, []byte) ([]byte, error) { return s.frame, s.err }

func TestGenerateVideoUsesExtractedFrame(t *testing.T) {
	th := New(Options{}, nil)
	th.frame = stubFrames{frame: pngBytes(t, 800, 800, 255)}

	res, err := th.Generate(context.Background(), []byte("mp4"), "video/mp4")
	require.NoError(t, err)
	assert.Nil(t, res.Width)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)

	th.frame = stubFrames{err: errors.New("no ffmpeg")}
	_, err = th.Generate(context.Background(), []byte("mp4"), "video/mp4")
	assert.Error(t, err)
}

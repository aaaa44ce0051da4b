package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type frameExtractor interface {
	Extract(ctx context.Context, video []byte) ([]byte, error)
}

// ffmpegExtractor grabs one frame as JPEG. The clip is written to a temp file
// because most containers need a seekable input.
type ffmpegExtractor struct {
	path string
}

func (f ffmpegExtractor) Extract(ctx context.Context, video []byte) ([]byte, error) {
	in, err := os.CreateTemp("", "minpic-video-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(video); err != nil {
		in.Close()
		return nil, err
	}
	if err := in.Close(); err != nil {
		return nil, err
	}

	// One second in skips black lead-in frames; clips shorter than that fall back to the first frame.
	for _, offset := range []string{"1", "0"} {
		frame, err := f.run(ctx, in.Name(), offset)
		if err != nil {
			return nil, err
		}
		if len(frame) > 0 {
			return frame, nil
		}
	}
	return nil, errors.New("ffmpeg produced no frame")
}

func (f ffmpegExtractor) run(ctx context.Context, input, offset string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path,
		"-hide_banner", "-loglevel", "error",
		"-ss", offset, "-i", input,
		"-frames:v", "1",
		"-f", "image2", "-c:v", "mjpeg",
		"pipe:1",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

package queue

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"renderq/internal/domain"
)

// EncodeOutput describes the artifact a local job produced.
type EncodeOutput struct {
	FilePath    string
	ContentType string
	Width       int
	Height      int
	DurationMs  int64
}

// Encoder executes the media work for a locally owned job. The actual
// transcoding lives in an external binary; this boundary stays thin.
type Encoder interface {
	Encode(ctx context.Context, job *domain.Job, progress func(int)) (*EncodeOutput, error)
}

// FFmpegEncoder shells out to ffmpeg. It reads the input straight from its
// URL and writes the output under workDir, leaving cleanup to the caller.
type FFmpegEncoder struct {
	binPath string
	workDir string
}

func NewFFmpegEncoder(binPath, workDir string) (*FFmpegEncoder, error) {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("encoder: ensure work dir: %w", err)
	}
	return &FFmpegEncoder{binPath: binPath, workDir: workDir}, nil
}

func (e *FFmpegEncoder) Encode(ctx context.Context, job *domain.Job, progress func(int)) (*EncodeOutput, error) {
	if job.Kind != domain.JobKindConvert {
		return nil, fmt.Errorf("encoder: unsupported kind %q", job.Kind)
	}
	if job.Payload.InputURL == "" {
		return nil, fmt.Errorf("encoder: input url required")
	}
	format := strings.ToLower(strings.TrimSpace(job.Payload.Format))
	if format == "" {
		format = "mp4"
	}

	outPath := filepath.Join(e.workDir, job.ID+"."+format)
	args := []string{"-y", "-i", job.Payload.InputURL}
	if job.Payload.Width > 0 && job.Payload.Height > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", job.Payload.Width, job.Payload.Height))
	}
	args = append(args, outPath)

	if progress != nil {
		progress(10)
	}

	cmd := exec.CommandContext(ctx, e.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return nil, fmt.Errorf("encoder: ffmpeg: %s: %w", msg, err)
	}

	if progress != nil {
		progress(95)
	}

	return &EncodeOutput{
		FilePath:    outPath,
		ContentType: contentTypeForFormat(format),
		Width:       job.Payload.Width,
		Height:      job.Payload.Height,
	}, nil
}

func contentTypeForFormat(format string) string {
	switch format {
	case "mp4", "mov":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "gif":
		return "image/gif"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

var _ Encoder = (*FFmpegEncoder)(nil)

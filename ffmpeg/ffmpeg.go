package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const segmentSeconds = 10

// ExitError reports a transcode run that ended with a non-zero exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d", e.Code)
}

// HLS re-encodes a source file into fixed-duration MPEG-TS segments plus an
// m3u8 playlist. Success or failure is decided solely by the process exit
// status; the diagnostic output is logged, never parsed. There is no retry:
// a failed encode is terminal for that upload attempt.
type HLS struct {
	// Timeout bounds one invocation. Zero means no bound.
	Timeout time.Duration
}

// Transcode runs the encoder against src, writing the playlist and segments
// into outDir, and returns the playlist path.
func (h HLS) Transcode(ctx context.Context, src, outDir string) (string, error) {
	manifest := filepath.Join(outDir, "index.m3u8")

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	_, _, err := run(ctx,
		"-i", src,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outDir, "seg-%05d.ts"),
		manifest,
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{Code: exitErr.ExitCode()}
		}
		return "", fmt.Errorf("run ffmpeg: %w", err)
	}
	return manifest, nil
}

// runs ffmpeg with the provided args and returns (stdout, stderr, error)
func run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	ffmpeg := "ffmpeg"
	log.Infoln(ffmpeg, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if err != nil {
		log.Errorf("ffmpeg error: %v", err)
	}
	log.Debugln("stdout:", stdout.String())
	log.Debugln("stderr:", stderr.String())
	return stdout.Bytes(), stderr.Bytes(), err
}

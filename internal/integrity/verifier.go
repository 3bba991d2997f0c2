package integrity

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"audiotool/internal/cachestore"
)

const (
	// DefaultDecodeTimeout bounds one decoder run.
	DefaultDecodeTimeout = 30 * time.Second

	// TimeoutMessage is recorded when the decoder exceeds its deadline.
	TimeoutMessage = "FFmpeg timed out"

	decoderWaitDelay = 2 * time.Second
)

// Verdict is the decoder's judgement of one file.
type Verdict struct {
	Status  cachestore.Status
	Message string
}

// Verifier fully decodes a file and reports whether it is healthy. Verify
// never returns an error: every failure mode becomes a Failed verdict.
type Verifier interface {
	Verify(ctx context.Context, path string) Verdict
}

// FFmpegVerifier decodes with `ffmpeg -v error -i <path> -f null -`. Any
// diagnostic output marks the file as failed; the exit code alone does not.
type FFmpegVerifier struct {
	Binary  string
	Timeout time.Duration
}

// Verify runs the decoder under the configured timeout. The decoder runs in
// its own process group and the whole group is killed on timeout.
func (v FFmpegVerifier) Verify(ctx context.Context, path string) Verdict {
	binary := strings.TrimSpace(v.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultDecodeTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, "-v", "error", "-i", path, "-f", "null", "-")
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	cmd.WaitDelay = decoderWaitDelay
	configureProcessGroup(cmd)

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Verdict{Status: cachestore.StatusFailed, Message: TimeoutMessage}
	}
	if diag := strings.TrimSpace(stderr.String()); diag != "" {
		return Verdict{Status: cachestore.StatusFailed, Message: diag}
	}
	// A non-zero exit without diagnostics still counts as a clean decode.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Verdict{Status: cachestore.StatusFailed, Message: err.Error()}
	}
	return Verdict{Status: cachestore.StatusPassed}
}

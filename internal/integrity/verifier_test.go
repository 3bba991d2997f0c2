package integrity_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audiotool/internal/cachestore"
	"audiotool/internal/integrity"
	"audiotool/internal/testsupport"
)

func stubFFmpeg(t *testing.T, body string) string {
	t.Helper()
	return testsupport.WriteScript(t, t.TempDir(), "ffmpeg", body)
}

func TestFFmpegVerifierPassesOnEmptyDiagnostics(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := stubFFmpeg(t, `echo "$@" > `+argsFile+"\nexit 0")

	verdict := integrity.FFmpegVerifier{Binary: bin}.Verify(context.Background(), "/music/a.flac")
	if verdict.Status != cachestore.StatusPassed || verdict.Message != "" {
		t.Fatalf("expected PASSED, got %#v", verdict)
	}
	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(args)); got != "-v error -i /music/a.flac -f null -" {
		t.Fatalf("unexpected decoder arguments: %q", got)
	}
}

func TestFFmpegVerifierFailsOnDiagnostics(t *testing.T) {
	bin := stubFFmpeg(t, "printf '  [flac] invalid residual\\n\\n' >&2\nexit 0")

	verdict := integrity.FFmpegVerifier{Binary: bin}.Verify(context.Background(), "/music/a.flac")
	if verdict.Status != cachestore.StatusFailed {
		t.Fatalf("expected FAILED, got %#v", verdict)
	}
	if verdict.Message != "[flac] invalid residual" {
		t.Fatalf("expected trimmed diagnostics, got %q", verdict.Message)
	}
}

func TestFFmpegVerifierTimesOut(t *testing.T) {
	bin := stubFFmpeg(t, "sleep 5 &\nwait")

	started := time.Now()
	verdict := integrity.FFmpegVerifier{Binary: bin, Timeout: 200 * time.Millisecond}.Verify(context.Background(), "/music/slow.flac")
	elapsed := time.Since(started)

	if verdict.Status != cachestore.StatusFailed || verdict.Message != integrity.TimeoutMessage {
		t.Fatalf("expected timeout verdict, got %#v", verdict)
	}
	if elapsed > 1500*time.Millisecond {
		t.Fatalf("expected the decoder group to be killed promptly, took %s", elapsed)
	}
}

func TestFFmpegVerifierInvocationFailures(t *testing.T) {
	missing := integrity.FFmpegVerifier{Binary: filepath.Join(t.TempDir(), "no-ffmpeg")}.Verify(context.Background(), "/music/a.flac")
	if missing.Status != cachestore.StatusFailed || missing.Message == "" {
		t.Fatalf("expected FAILED with error text for missing binary, got %#v", missing)
	}

}

func TestFFmpegVerifierSilentNonZeroExitPasses(t *testing.T) {
	bin := stubFFmpeg(t, "exit 3")
	silent := integrity.FFmpegVerifier{Binary: bin}.Verify(context.Background(), "/music/a.flac")
	if silent.Status != cachestore.StatusPassed || silent.Message != "" {
		t.Fatalf("expected PASSED for empty diagnostics, got %#v", silent)
	}

	noisy := integrity.FFmpegVerifier{Binary: stubFFmpeg(t, "echo 'corrupt frame' >&2; exit 1")}.Verify(context.Background(), "/music/a.flac")
	if noisy.Status != cachestore.StatusFailed || noisy.Message != "corrupt frame" {
		t.Fatalf("expected FAILED with diagnostics, got %#v", noisy)
	}
}

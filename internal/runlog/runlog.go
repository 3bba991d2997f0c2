// Package runlog writes the per-run Success and Failed text logs produced by
// a check. Lines accumulate in hidden temporary files that are renamed into
// place only when the run commits, so an aborted run leaves nothing behind.
package runlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"audiotool/internal/cachestore"
)

// TimestampLayout names the log files, e.g. Failed-2024-05-01_12-30-00.txt.
const TimestampLayout = "2006-01-02_15-04-05"

// Summary is the tally appended to both logs.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// FormatSummary renders the trailing summary block.
func FormatSummary(s Summary) string {
	return fmt.Sprintf("\nSummary:\nTotal files: %d\nPassed: %d\nFailed: %d\n", s.Total, s.Passed, s.Failed)
}

// FormatLine renders one result as "STATUS path" or "STATUS path: message".
func FormatLine(status cachestore.Status, path, message string) string {
	if message == "" {
		return fmt.Sprintf("%s %s", status, path)
	}
	return fmt.Sprintf("%s %s: %s", status, path, message)
}

type logFile struct {
	file  *os.File
	buf   *bufio.Writer
	final string
}

// Writer accumulates a run's Success and Failed logs.
type Writer struct {
	success logFile
	failed  logFile
	closed  bool
}

// Create opens temporary logs in dir for a run started at now.
func Create(dir string, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	stamp := now.Format(TimestampLayout)
	success, err := openTemp(dir, "Success-"+stamp+".txt")
	if err != nil {
		return nil, err
	}
	failed, err := openTemp(dir, "Failed-"+stamp+".txt")
	if err != nil {
		_ = success.file.Close()
		_ = os.Remove(success.file.Name())
		return nil, err
	}
	return &Writer{success: success, failed: failed}, nil
}

func openTemp(dir, final string) (logFile, error) {
	f, err := os.CreateTemp(dir, "."+final+".*.tmp")
	if err != nil {
		return logFile{}, fmt.Errorf("create run log: %w", err)
	}
	return logFile{file: f, buf: bufio.NewWriter(f), final: filepath.Join(dir, final)}, nil
}

// Record appends a result line to the log matching status.
func (w *Writer) Record(status cachestore.Status, path, message string) error {
	if w.closed {
		return errors.New("run log already closed")
	}
	target := &w.success
	if status != cachestore.StatusPassed {
		target = &w.failed
	}
	_, err := target.buf.WriteString(FormatLine(status, path, message) + "\n")
	return err
}

// Commit appends the summary to both logs and renames them into place. It
// returns the final Success and Failed paths.
func (w *Writer) Commit(s Summary) (string, string, error) {
	if w.closed {
		return "", "", errors.New("run log already closed")
	}
	w.closed = true
	block := FormatSummary(s)
	var errs []error
	for _, lf := range []*logFile{&w.success, &w.failed} {
		if _, err := lf.buf.WriteString(block); err != nil {
			errs = append(errs, err)
		}
		if err := lf.buf.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := lf.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		w.removeTemps()
		return "", "", fmt.Errorf("write run logs: %w", err)
	}
	var published []string
	for _, lf := range []*logFile{&w.success, &w.failed} {
		if err := os.Rename(lf.file.Name(), lf.final); err != nil {
			w.removeTemps()
			// Both logs are published or neither is.
			for _, path := range published {
				_ = os.Remove(path)
			}
			return "", "", fmt.Errorf("publish run log: %w", err)
		}
		published = append(published, lf.final)
	}
	return w.success.final, w.failed.final, nil
}

// Abort discards both logs. It is safe to call after Commit.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	_ = w.success.file.Close()
	_ = w.failed.file.Close()
	w.removeTemps()
}

func (w *Writer) removeTemps() {
	_ = os.Remove(w.success.file.Name())
	_ = os.Remove(w.failed.file.Name())
}

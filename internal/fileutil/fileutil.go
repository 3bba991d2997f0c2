// Package fileutil holds the file helpers shared by the cache and the CLI:
// streaming content hashes, timestamp conversion, and backup copies.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

const hashChunkSize = 64 * 1024

// HashFile returns the lowercase hex SHA-256 of the file contents. The file is
// streamed, never loaded whole. A missing file yields an error matching
// fs.ErrNotExist.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ModTimeSeconds converts a modification time into fractional seconds since
// the Unix epoch, the representation stored in the cache.
func ModTimeSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// StatFile returns the size and modification time (seconds) of a regular file.
func StatFile(path string) (size int64, mtime float64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	if info.IsDir() {
		return 0, 0, &fs.PathError{Op: "stat", Path: path, Err: fmt.Errorf("is a directory")}
	}
	return info.Size(), ModTimeSeconds(info.ModTime()), nil
}

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

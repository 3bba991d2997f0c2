package export

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"audiotool/internal/cachestore"
	"audiotool/internal/fileutil"
)

// LiveStatus is the state of a cached file on disk at export time.
type LiveStatus string

const (
	LivePassed  LiveStatus = "Passed"
	LiveFailed  LiveStatus = "Failed"
	LiveMissing LiveStatus = "Missing"
	LiveChanged LiveStatus = "Changed"
	LiveError   LiveStatus = "Error"
)

// CheckLive compares a record against the file on disk using the same
// two-tier rule as a check run: equal timestamp (and size when known) trusts
// the cached verdict, otherwise the content hash decides. It never decodes.
func CheckLive(rec cachestore.Record) LiveStatus {
	size, mtime, err := fileutil.StatFile(rec.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LiveMissing
		}
		return LiveError
	}
	if rec.HasModTime && rec.ModTime == mtime && (!rec.HasSize || rec.Size == size) {
		return fromStatus(rec.Status)
	}
	hash, err := fileutil.HashFile(rec.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LiveMissing
		}
		return LiveError
	}
	if hash != rec.Hash {
		return LiveChanged
	}
	return fromStatus(rec.Status)
}

func fromStatus(status cachestore.Status) LiveStatus {
	if status == cachestore.StatusPassed {
		return LivePassed
	}
	return LiveFailed
}

// ReadTags returns artist, album, and title from the file's embedded
// metadata. Unreadable or untagged files yield empty strings.
func ReadTags(path string) (artist, album, title string) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", "", ""
	}
	return strings.TrimSpace(m.Artist()), strings.TrimSpace(m.Album()), strings.TrimSpace(m.Title())
}

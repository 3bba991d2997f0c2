package integrity

import (
	"time"

	"audiotool/internal/cachestore"
)

// Task asks for the verdict of a single file. Force bypasses the cache.
type Task struct {
	Path  string
	Force bool
}

// Outcome is the result of deciding a Task. It is one of Cached, Refreshed,
// Verified, or NotFound.
type Outcome interface {
	outcome()
}

// Cached reuses the stored verdict; nothing was read and nothing is written.
type Cached struct {
	Status cachestore.Status
}

// Refreshed means the content hash matched the cache while the timestamp
// moved. Only the stored modification time is updated.
type Refreshed struct {
	Status  cachestore.Status
	ModTime float64
}

// Verified carries a fresh decoder verdict and replaces the cached row.
type Verified struct {
	Status    cachestore.Status
	Message   string
	Hash      string
	ModTime   float64
	Size      int64
	Codec     string
	CodecType string
	// Known reports whether Hash, ModTime, and Size describe the file. It is
	// false when the verdict stems from an internal error.
	Known bool
}

// NotFound means the file vanished before it could be checked.
type NotFound struct{}

func (Cached) outcome()    {}
func (Refreshed) outcome() {}
func (Verified) outcome()  {}
func (NotFound) outcome()  {}

// StatusOf returns the verdict carried by o, or false for NotFound.
func StatusOf(o Outcome) (cachestore.Status, bool) {
	switch v := o.(type) {
	case Cached:
		return v.Status, true
	case Refreshed:
		return v.Status, true
	case Verified:
		return v.Status, true
	}
	return "", false
}

// Kind names the outcome variant for logs and reports.
func Kind(o Outcome) string {
	switch o.(type) {
	case Cached:
		return "cached"
	case Refreshed:
		return "refreshed"
	case Verified:
		return "verified"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// Message returns the decoder diagnostic of a Verified outcome.
func Message(o Outcome) string {
	if v, ok := o.(Verified); ok {
		return v.Message
	}
	return ""
}

// mutation converts an outcome into the cache write it requires, if any.
func mutation(path string, o Outcome, checkedAt time.Time) (cachestore.Mutation, bool) {
	switch v := o.(type) {
	case Refreshed:
		return cachestore.RefreshMutation(path, v.ModTime, v.Status), true
	case Verified:
		return cachestore.UpsertMutation(cachestore.Record{
			Path:        path,
			Hash:        v.Hash,
			ModTime:     v.ModTime,
			HasModTime:  v.Known,
			Size:        v.Size,
			HasSize:     v.Known,
			Status:      v.Status,
			LastChecked: checkedAt,
			Codec:       v.Codec,
			CodecType:   v.CodecType,
		}), true
	}
	return cachestore.Mutation{}, false
}

package cachestore

import (
	"fmt"
	"strings"
	"time"
)

// Status is the stored verdict of a file.
type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
)

// ParseStatus accepts PASSED/FAILED in any case.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusPassed:
		return StatusPassed, nil
	case StatusFailed:
		return StatusFailed, nil
	}
	return "", fmt.Errorf("unknown status %q (use passed or failed)", value)
}

const (
	passedTable = "passed_files"
	failedTable = "failed_files"
)

// partition returns the table holding rows with the given status and the
// table that must not hold them.
func partition(status Status) (target, opposite string, err error) {
	switch status {
	case StatusPassed:
		return passedTable, failedTable, nil
	case StatusFailed:
		return failedTable, passedTable, nil
	}
	return "", "", fmt.Errorf("invalid status %q", status)
}

// Record is one cached verdict. Optional columns written by older versions may
// be NULL; HasModTime and HasSize report whether the value was stored.
type Record struct {
	Path        string
	Hash        string
	ModTime     float64
	HasModTime  bool
	Size        int64
	HasSize     bool
	Status      Status
	LastChecked time.Time
	Codec       string
	CodecType   string
}

// MutationKind selects the write a Mutation performs.
type MutationKind int

const (
	// MutationUpsert replaces the whole row and moves it between partitions
	// when the status changed.
	MutationUpsert MutationKind = iota
	// MutationRefresh updates only the stored modification time.
	MutationRefresh
	// MutationCodec updates only the codec columns.
	MutationCodec
)

// Mutation is a pending write applied by Apply.
type Mutation struct {
	Kind   MutationKind
	Record Record
}

// UpsertMutation builds a full-row replacement.
func UpsertMutation(rec Record) Mutation {
	return Mutation{Kind: MutationUpsert, Record: rec}
}

// RefreshMutation builds a timestamp-only update.
func RefreshMutation(path string, mtime float64, status Status) Mutation {
	return Mutation{Kind: MutationRefresh, Record: Record{Path: path, ModTime: mtime, HasModTime: true, Status: status}}
}

// CodecMutation builds a codec-only update for a row in status's partition.
func CodecMutation(path string, status Status, codec, codecType string) Mutation {
	return Mutation{Kind: MutationCodec, Record: Record{Path: path, Status: status, Codec: codec, CodecType: codecType}}
}

// Summary counts rows per partition.
type Summary struct {
	Passed int
	Failed int
}

// Total returns the number of cached files.
func (s Summary) Total() int {
	return s.Passed + s.Failed
}

// CodecCount is one bucket of the codec distribution.
type CodecCount struct {
	Status    Status
	Codec     string
	CodecType string
	Count     int
}

// Report aggregates the data shown by the status command.
type Report struct {
	Summary
	Codecs       []CodecCount
	RecentPassed int
	RecentFailed int
	Since        time.Time
	LastChecked  time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status    Status
	Codec     string
	CodecType string
	Limit     int
}

// Health captures diagnostic information about the cache database.
type Health struct {
	DBPath         string
	DatabaseExists bool
	Readable       bool
	SizeBytes      int64
	JournalMode    string
	Tables         []string
	MissingColumns []string
	IntegrityOK    bool
	Error          string
}

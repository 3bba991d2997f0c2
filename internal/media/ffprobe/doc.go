// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio files.
//
// Inspect runs ffprobe restricted to the first audio stream and returns the
// parsed Result. Helper methods expose the stream codec and container
// duration without callers touching the raw JSON.
package ffprobe

// Package codec maps raw ffprobe codec names onto the canonical codec labels
// and lossless/lossy classification stored in the integrity cache.
package codec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"audiotool/internal/media/ffprobe"
)

// Type classifies a codec by compression.
type Type string

const (
	Lossless Type = "lossless"
	Lossy    Type = "lossy"
	Unknown  Type = "unknown"
)

// ProbeTimeout bounds a single ffprobe invocation.
const ProbeTimeout = 10 * time.Second

// Info is a normalized codec description.
type Info struct {
	Name string
	Type Type
}

type entry struct {
	name string
	kind Type
}

var table = map[string]entry{
	"mp3":         {"mp3", Lossy},
	"mp3float":    {"mp3", Lossy},
	"libmp3lame":  {"mp3", Lossy},
	"mp2":         {"mp2", Lossy},
	"aac":         {"aac", Lossy},
	"aac_latm":    {"aac", Lossy},
	"aac-lc":      {"aac", Lossy},
	"aac-ld":      {"aac", Lossy},
	"aac-he":      {"aac", Lossy},
	"aac-hev2":    {"aac", Lossy},
	"libfdk_aac":  {"aac", Lossy},
	"vorbis":      {"ogg", Lossy},
	"libvorbis":   {"ogg", Lossy},
	"ogg":         {"ogg", Lossy},
	"opus":        {"opus", Lossy},
	"libopus":     {"opus", Lossy},
	"flac":        {"flac", Lossless},
	"libflac":     {"flac", Lossless},
	"alac":        {"alac", Lossless},
	"apl":         {"alac", Lossless},
	"wavpack":     {"wv", Lossless},
	"wv":          {"wv", Lossless},
	"ape":         {"ape", Lossless},
	"wav":         {"wav", Lossless},
	"pcm":         {"pcm", Lossless},
	"wma":         {"wma", Lossy},
	"wmav1":       {"wma", Lossy},
	"wmav2":       {"wma", Lossy},
	"wmapro":      {"wma", Lossy},
	"wmalossless": {"wma", Lossless},
	"ac3":         {"ac3", Lossy},
	"eac3":        {"eac3", Lossy},
	"dts":         {"dts", Lossy},
	"truehd":      {"truehd", Lossless},
}

// Normalize converts a raw codec name. PCM variants (pcm_s16le, pcm_f32be, ...)
// collapse to "pcm". Unrecognized codecs keep their lowercased name with an
// Unknown type; an empty name yields "unknown".
func Normalize(raw string) Info {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return Info{Name: string(Unknown), Type: Unknown}
	}
	if e, ok := table[name]; ok {
		return Info{Name: e.name, Type: e.kind}
	}
	if strings.HasPrefix(name, "pcm_") {
		return Info{Name: "pcm", Type: Lossless}
	}
	return Info{Name: name, Type: Unknown}
}

// Prober resolves the codec of an audio file.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// FFprobe probes codecs with the ffprobe binary.
type FFprobe struct {
	Binary  string
	Timeout time.Duration
}

// Probe inspects the first audio stream of path.
func (p FFprobe) Probe(ctx context.Context, path string) (Info, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = ProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := ffprobe.Inspect(ctx, p.Binary, path)
	if err != nil {
		return Info{}, err
	}
	stream, ok := result.AudioStream()
	if !ok {
		return Info{}, fmt.Errorf("no audio stream in %s", path)
	}
	return Normalize(stream.CodecName), nil
}

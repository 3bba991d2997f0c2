package config

import "runtime"

const (
	defaultConfigPath           = "~/.config/audiotool/config.toml"
	defaultCacheDir             = "~/.local/share/audiotool/cache"
	defaultLogDir               = "~/.local/share/audiotool/logs"
	defaultExportDir            = "~/.local/share/audiotool/exports"
	defaultDecodeTimeoutSeconds = 30
	defaultFlushThreshold       = 100
	defaultLockTimeoutSeconds   = 60
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	minDefaultWorkers           = 4

	databaseFileName = "integrity_check.db"
	lockFileName     = "integrity_check.lock"
)

// DefaultExtensions lists the audio file extensions scanned by default.
var DefaultExtensions = []string{".flac", ".wav", ".m4a", ".mp3", ".ogg", ".opus", ".ape", ".wv", ".wma"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:  defaultCacheDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Integrity: Integrity{
			DecodeTimeoutSeconds: defaultDecodeTimeoutSeconds,
			FlushThreshold:       defaultFlushThreshold,
			LockTimeoutSeconds:   defaultLockTimeoutSeconds,
			FFmpegBinary:         defaultFFmpegBinary,
			FFprobeBinary:        defaultFFprobeBinary,
			ProbeCodec:           true,
			Extensions:           append([]string(nil), DefaultExtensions...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultWorkers returns host parallelism with a floor of four.
func DefaultWorkers() int {
	return max(runtime.NumCPU(), minDefaultWorkers)
}

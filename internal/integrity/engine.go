package integrity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"audiotool/internal/cachestore"
	"audiotool/internal/fileutil"
	"audiotool/internal/logging"
	"audiotool/internal/media/codec"
)

// Lookuper reads cached verdicts.
type Lookuper interface {
	Lookup(ctx context.Context, path string) (cachestore.Record, bool, error)
}

// Engine decides the outcome of one Task. It reads the cache but never writes
// it; callers persist the returned Outcome. Engine is safe for concurrent use
// when its collaborators are.
type Engine struct {
	store    Lookuper
	verifier Verifier
	prober   codec.Prober
	logger   *slog.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithProber records the codec of every freshly verified file.
func WithProber(p codec.Prober) EngineOption {
	return func(e *Engine) { e.prober = p }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine constructs an Engine over the given cache and verifier.
func NewEngine(store Lookuper, verifier Verifier, opts ...EngineOption) *Engine {
	e := &Engine{store: store, verifier: verifier}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "integrity")
	return e
}

// Decide applies the cache policy to task:
//
//  1. a missing file yields NotFound;
//  2. Force, or no cached row, runs full verification;
//  3. an equal stored timestamp (and size, when stored) yields Cached;
//  4. otherwise the content is hashed: a match yields Refreshed, a mismatch
//     runs full verification.
//
// A matching hash never re-runs the decoder. Errors other than a vanished
// file are returned for the caller to record.
//
// Rule 3 never reads the file, so an edit that preserves both the size and
// the modification time is served from the cache. Set Task.Force to
// re-verify such files.
func (e *Engine) Decide(ctx context.Context, task Task) (Outcome, error) {
	size, mtime, err := fileutil.StatFile(task.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotFound{}, nil
		}
		return nil, fmt.Errorf("stat %s: %w", task.Path, err)
	}

	if task.Force {
		return e.verify(ctx, task.Path, size, mtime, "")
	}

	rec, found, err := e.store.Lookup(ctx, task.Path)
	if err != nil {
		return nil, err
	}
	if !found {
		return e.verify(ctx, task.Path, size, mtime, "")
	}

	if rec.HasModTime && rec.ModTime == mtime && (!rec.HasSize || rec.Size == size) {
		return Cached{Status: rec.Status}, nil
	}

	hash, err := fileutil.HashFile(task.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotFound{}, nil
		}
		return nil, err
	}
	if rec.Hash != "" && hash == rec.Hash {
		e.logger.Debug("content unchanged; refreshing timestamp",
			logging.Args(append(logging.DecisionAttrs("cache", "refresh", "hash matched"), logging.Path(task.Path))...)...)
		return Refreshed{Status: rec.Status, ModTime: mtime}, nil
	}
	return e.verify(ctx, task.Path, size, mtime, hash)
}

func (e *Engine) verify(ctx context.Context, path string, size int64, mtime float64, hash string) (Outcome, error) {
	if hash == "" {
		var err error
		hash, err = fileutil.HashFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return NotFound{}, nil
			}
			return nil, err
		}
	}

	verdict := e.verifier.Verify(ctx, path)
	out := Verified{
		Status:  verdict.Status,
		Message: verdict.Message,
		Hash:    hash,
		ModTime: mtime,
		Size:    size,
		Known:   true,
	}
	if e.prober != nil {
		info, err := e.prober.Probe(ctx, path)
		if err != nil {
			e.logger.Debug("codec probe failed", logging.Path(path), logging.Error(err))
			info = codec.Info{Name: string(codec.Unknown), Type: codec.Unknown}
		}
		out.Codec = info.Name
		out.CodecType = string(info.Type)
	}
	return out, nil
}

// Package logging assembles structured slog loggers and formatting helpers used
// across audiotool.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes helpers that keep warning and decision logs in a
// consistent shape (event type, hint, impact). Run-scoped identifiers travel on
// the context so every line emitted during a check can be correlated. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging

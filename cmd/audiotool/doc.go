// Package main hosts the audiotool CLI entrypoint and command graph.
//
// The Cobra-based command tree covers integrity checks over audio libraries,
// inspection and maintenance of the shared integrity cache, environment
// diagnostics, and configuration scaffolding. It centralizes configuration
// resolution and logger setup so subcommands can focus on output.
//
// Keep this package lean: behaviour lives in the internal packages and is
// surfaced here through commands and flags.
package main

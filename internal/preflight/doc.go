// Package preflight provides readiness checks for the binaries and
// directories audiotool depends on.
//
// The doctor command prints every result; the check command runs RunAll
// before touching the cache and refuses to start when a required check
// fails.
package preflight

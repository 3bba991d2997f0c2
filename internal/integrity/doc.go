// Package integrity decides, verifies, and records the health of audio files.
//
// Engine applies the two-tier cache policy to one file: an unchanged
// modification time returns the cached verdict without reading the file, a
// changed timestamp with identical content only refreshes the stored
// timestamp, and anything else runs the decoder through a Verifier.
//
// Coordinator drives Engine across a file list, either sequentially or through
// a fixed worker pool. Workers only decide; the coordinator goroutine owns all
// persistence and applies pending cache writes in locked batches.
package integrity

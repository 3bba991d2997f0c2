// Package export writes cache records to CSV, JSON, or YAML files.
//
// Rows can optionally be annotated with a live status computed against the
// file on disk (Passed, Failed, Missing, Changed, Error) and with the
// artist/album/title tags embedded in the audio file.
package export

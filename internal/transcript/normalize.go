// Package transcript normalizes raw recognizer output before it reaches the
// diff tracker.
package transcript

import "strings"

// Normalize trims leading/trailing whitespace and collapses internal
// whitespace runs to a single space. whisper.cpp segments are joined with
// whatever spacing the model emitted between them; the diff tracker's aging
// heuristic assumes stable spacing across snapshots, so this runs on every
// transcript before it is compared.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Package diff renders unified diffs between the input rules document and
// the patched output.
package diff

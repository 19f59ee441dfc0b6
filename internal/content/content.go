// Package content turns raw issue and pull request records into the
// exact text fed to the embedding model, and fingerprints pull request
// content for change detection.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// IssueText composes the embeddable text for an issue.
func IssueText(title, body string) string {
	return title + "\n\n" + body
}

// PullText composes the embeddable text for a pull request. The changed
// file paths are appended in the order the source returned them, so
// reordering the same set of files produces different text.
func PullText(title, body string, files []string) string {
	return title + "\n\n" + body + "\n\n" + strings.Join(files, "\n")
}

// PullHash returns the hex-encoded SHA-256 fingerprint of a pull
// request's normalized text. Two pull requests with identical content
// hash identically regardless of their identifiers.
func PullHash(title, body string, files []string) string {
	sum := sha256.Sum256([]byte(PullText(title, body, files)))
	return hex.EncodeToString(sum[:])
}

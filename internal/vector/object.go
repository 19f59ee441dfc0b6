// Package vector defines the per-repository embedding artifact and the
// merge algorithm that maintains it across syncs.
package vector

import (
	"encoding/json"
	"fmt"
)

// ItemVector is one embedded item inside the artifact. Items are keyed
// by their stable identifier, not their display number, so renumbering
// on the source side never orphans an entry.
type ItemVector struct {
	ID     string    `json:"id"`
	Number int       `json:"number"`
	State  string    `json:"state"`
	Vector []float32 `json:"vector"`
}

// PullVector extends ItemVector with the content fingerprint recorded
// when the vector was computed. A matching fingerprint on a later sync
// means the embedding can be reused.
type PullVector struct {
	ItemVector
	Hash string `json:"hash"`
}

// Object is the single derived artifact for one repository: every
// currently-open issue and pull request with its embedding. Iteration
// order of the maps is never significant; the merge algorithm depends
// only on key presence.
type Object struct {
	Repo         string                `json:"repo"`
	SyncedAt     int64                 `json:"syncedAt"`
	Issues       map[string]ItemVector `json:"issues"`
	PullRequests map[string]PullVector `json:"pullRequests"`
}

// NewObject returns an empty artifact for the given repository.
func NewObject(repo string) Object {
	return Object{
		Repo:         repo,
		Issues:       make(map[string]ItemVector),
		PullRequests: make(map[string]PullVector),
	}
}

// Encode serializes the artifact to JSON text.
func (o Object) Encode() (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("encoding vector object: %w", err)
	}
	return string(data), nil
}

// Decode parses JSON text into an artifact, normalizing absent maps so
// callers never index into nil.
func Decode(text string) (Object, error) {
	var o Object
	if err := json.Unmarshal([]byte(text), &o); err != nil {
		return Object{}, fmt.Errorf("decoding vector object: %w", err)
	}
	if o.Issues == nil {
		o.Issues = make(map[string]ItemVector)
	}
	if o.PullRequests == nil {
		o.PullRequests = make(map[string]PullVector)
	}
	return o, nil
}

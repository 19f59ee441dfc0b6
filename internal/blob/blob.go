// Package blob provides keyed storage of one compressed artifact per
// repository. The store treats artifacts as opaque byte blobs.
package blob

import "context"

// Store is keyed get/put/delete of opaque blobs. Get reports a missing
// key with found=false rather than an error: a repository that has not
// been backfilled yet legitimately has no artifact.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

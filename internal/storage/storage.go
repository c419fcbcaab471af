// Package storage abstracts the object store that receives stamped evidence.
package storage

import (
	"context"
)

// Store is an opaque "upload bytes, get back a reference" capability. The
// pipeline only consumes the references it receives; where and how objects
// live is the store's concern.
type Store interface {
	// Put uploads the object and returns its public URL and storage key.
	Put(ctx context.Context, data []byte, suggestedName string, metadata map[string]string) (url, key string, err error)
}

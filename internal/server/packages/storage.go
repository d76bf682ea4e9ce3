// Package packages stores uploaded plain application packages and hands
// them back by opaque handle. Handles are read-only once created; the
// device container derived from a package is never stored here.
package packages

import "context"

type Storage interface {
	// Save stores the package bytes and returns the new handle.
	Save(ctx context.Context, data []byte) (string, error)

	// Open returns the package bytes for a handle, or common.ErrorNotFound.
	Open(ctx context.Context, handle string) ([]byte, error)

	// Exists reports whether a handle refers to a stored package.
	Exists(ctx context.Context, handle string) (bool, error)
}

// Package sessionstore provides session-scoped key/value persistence and
// the shared product-list cache. The cart and checkout flows treat it as a
// durability mirror: in-memory state stays authoritative for an active
// session, and read/write failures degrade to empty state.
package sessionstore

import "context"

// Store is session-scoped key/value storage. Get returns (nil, nil) when
// the key is absent.
type Store interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID, key string) error
}

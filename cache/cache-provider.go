package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrStoreDeleted is returned when writing through a handle to a store
	// that has since been deleted from its storage.
	ErrStoreDeleted = errors.New("store deleted")
	// ErrUnknownProvider is returned by Open for unsupported provider names.
	ErrUnknownProvider = errors.New("unknown storage provider")
)

// Storage is a registry of named stores.
// Stores are created lazily on Open and destroyed only by Delete.
//
// Implementations must be thread-safe!
type Storage interface {
	// Open returns the store with the given name, creating it if needed.
	Open(ctx context.Context, name string) (Store, error)
	// Delete removes the store and all of its entries.
	// It reports whether a store by that name existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Names lists all existing store names in creation order.
	Names(ctx context.Context) ([]string, error)
	Close() error
}

// Store maps request identities to response snapshots.
// There is no expiry: entries live until overwritten or until the store is deleted.
//
// Implementations must be thread-safe!
type Store interface {
	Name() string
	// Get returns the stored response for the key, if any.
	Get(ctx context.Context, key string) (*Response, bool, error)
	// Put stores the response under the key, overwriting any previous entry.
	Put(ctx context.Context, key string, res *Response) error
	// Keys calls the given callback for each key in the store.
	Keys(ctx context.Context, cb func(string)) error
}

type ResponseType string

const (
	// Same-origin response.
	ResponseTypeBasic ResponseType = "basic"
	// Cross-origin response permitted by CORS headers.
	ResponseTypeCORS ResponseType = "cors"
	// Cross-origin response without CORS permission.
	ResponseTypeOpaque ResponseType = "opaque"
)

// Response is a complete, immutable snapshot of an HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Type       ResponseType
	// URL the response was fetched from.
	URL string
	// Set by the store when the snapshot is written.
	StoredAt time.Time
}

// Clone returns a deep copy, so the original and the copy can be used independently.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

const (
	ProviderMemory  = "memory"
	ProviderSQLite  = "sqlite"
	ProviderLevelDB = "leveldb"
)

// Open creates the storage for the given provider name.
// The path is a file name for sqlite and a directory for leveldb.
func Open(provider, path string) (Storage, error) {
	switch provider {
	case "", ProviderMemory:
		return NewMemoryStorage(), nil
	case ProviderSQLite:
		return NewSQLiteStorage(path)
	case ProviderLevelDB:
		return NewLevelDBStorage(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

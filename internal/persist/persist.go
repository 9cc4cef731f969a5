// Package persist is the durable local storage contract of the storefront stores.
// Each store serializes its slice of state as a JSON blob under a namespaced key.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage namespaces for the persisted stores.
const (
	CartNamespace        = "sabowaryan-cart"
	PreferencesNamespace = "sabowaryan-preferences"
)

var ErrNotFound = errors.New("key not found")

// Repository stores opaque blobs by key.
type Repository interface {
	// Load returns the blob stored under key.
	// Returns ErrNotFound if nothing is stored under key.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores blob under key, replacing any previous value.
	Save(ctx context.Context, key string, blob []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Backend is a Repository that can report whether its storage is reachable.
type Backend interface {
	Repository
	Ping(ctx context.Context) error
}

// Key builds the storage key of a namespace for one shopper.
func Key(namespace, owner string) string {
	return namespace + ":" + owner
}

// LoadJSON loads key and decodes it into dst.
// Returns ErrNotFound if nothing is stored under key.
func LoadJSON(ctx context.Context, repo Repository, key string, dst any) error {
	blob, err := repo.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, repo Repository, key string, v any) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return repo.Save(ctx, key, blob)
}

// Package store provides the persistence bridge: two independent
// key/value scopes with different audiences.
//
// The shared scope is visible to everyone working on a document (the
// tracked inventory, batch results). The private scope belongs to the
// current user (API keys, webhook URLs). Data must always go to the scope
// matching its audience; the Bridge makes the scope an explicit argument.
//
// The Store interface allows swapping backends: memory for tests, JSON
// files for a single machine, SQLite for a local database, Redis for a
// shared server.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrVerifyMismatch is returned when a write reads back differently.
var ErrVerifyMismatch = errors.New("persisted value does not match what was written")

// Scope selects the audience of a value.
type Scope string

const (
	Shared  Scope = "shared"
	Private Scope = "private"
)

// Shared-scope keys.
const (
	KeyState        = "pluginState"
	KeyBatchResults = "pluginBatchResults"
	KeyBatchContext = "pluginBatchContext"
)

// Private-scope keys.
const (
	KeyAPIKey        = "openai_api_key"
	KeyWebhookURL    = "webhook_url"
	KeyManualFileKey = "manual_file_key"
)

// SettingsKeys lists the private keys that make up user settings.
func SettingsKeys() []string {
	return []string{KeyAPIKey, KeyWebhookURL, KeyManualFileKey}
}

// Store is a flat string key/value namespace.
// Get reports absent keys with ok == false; an empty string is a valid,
// present value.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Bridge routes reads and writes to the store of each scope.
type Bridge struct {
	shared  Store
	private Store
}

// NewBridge creates a Bridge over two independent stores.
func NewBridge(shared, private Store) *Bridge {
	return &Bridge{shared: shared, private: private}
}

func (b *Bridge) store(scope Scope) (Store, error) {
	switch scope {
	case Shared:
		return b.shared, nil
	case Private:
		return b.private, nil
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
}

// Get reads key from scope.
func (b *Bridge) Get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	s, err := b.store(scope)
	if err != nil {
		return "", false, err
	}
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", scope, key, err)
	}
	return v, ok, nil
}

// Set writes key in scope.
func (b *Bridge) Set(ctx context.Context, scope Scope, key, value string) error {
	s, err := b.store(scope)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set %s/%s: %w", scope, key, err)
	}
	return nil
}

// SetVerified writes key and reads it back. A differing read-back returns
// ErrVerifyMismatch; the write itself is not undone.
func (b *Bridge) SetVerified(ctx context.Context, scope Scope, key, value string) error {
	if err := b.Set(ctx, scope, key, value); err != nil {
		return err
	}
	got, ok, err := b.Get(ctx, scope, key)
	if err != nil {
		return err
	}
	if !ok || got != value {
		return fmt.Errorf("%s/%s: %w", scope, key, ErrVerifyMismatch)
	}
	return nil
}

// Close closes both stores.
func (b *Bridge) Close() error {
	return errors.Join(b.shared.Close(), b.private.Close())
}

// Package memory provides in-memory implementations for testing and for
// sessions that should not outlive the process.
package memory

import (
	"context"
	"sync"

	"github.com/feedwatchdog/admin/ports"
)

// TokenStore is an in-memory implementation of ports.TokenStore.
type TokenStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		values: make(map[string]string),
	}
}

// Get returns the value for key, or "" when it is not set.
func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.values[key], nil
}

// Set stores a value.
func (s *TokenStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Delete removes a value.
func (s *TokenStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Len returns the number of stored values.
func (s *TokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}

// Ensure interface compliance.
var _ ports.TokenStore = (*TokenStore)(nil)

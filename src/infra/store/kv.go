// Package store provides a TTL-keyed persistence primitive on top of a
// durable key-value collaborator. The store itself only adds expiry
// semantics; durability is delegated to the backing implementation.
package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Durable is the host-provided key-value collaborator the expiring store
// persists through.
type Durable interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

type entry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

// Expiring wraps a Durable store with optional per-key expiry. Expired
// entries are evicted lazily on read, and the eviction is persisted.
type Expiring struct {
	backend Durable
	now     func() time.Time
}

// NewExpiring creates an expiring store over the given backend.
func NewExpiring(backend Durable) *Expiring {
	return &Expiring{backend: backend, now: time.Now}
}

// Get loads the value stored under key into dest. It reports false when
// the key is absent or its expiry is not strictly in the future; an
// expired entry is deleted from the backend before returning.
func (s *Expiring) Get(key string, dest any) (bool, error) {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		return false, fmt.Errorf("kv get %q: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false, fmt.Errorf("kv decode %q: %w", key, err)
	}
	if e.ExpiresAt != nil && !e.ExpiresAt.After(s.now()) {
		if err := s.backend.Delete(key); err != nil {
			return false, fmt.Errorf("kv evict %q: %w", key, err)
		}
		return false, nil
	}

	if dest != nil {
		if err := json.Unmarshal(e.Value, dest); err != nil {
			return false, fmt.Errorf("kv decode %q: %w", key, err)
		}
	}
	return true, nil
}

// Set stores a non-expiring entry.
func (s *Expiring) Set(key string, value any) error {
	return s.write(key, value, nil)
}

// SetFor stores an entry expiring the given duration from now.
func (s *Expiring) SetFor(key string, value any, ttl time.Duration) error {
	deadline := s.now().Add(ttl)
	return s.write(key, value, &deadline)
}

// SetUntil stores an entry expiring at an absolute time.
func (s *Expiring) SetUntil(key string, value any, deadline time.Time) error {
	return s.write(key, value, &deadline)
}

// Has reports whether key holds a live entry.
func (s *Expiring) Has(key string) bool {
	ok, err := s.Get(key, nil)
	return err == nil && ok
}

// Delete removes key unconditionally.
func (s *Expiring) Delete(key string) error {
	return s.backend.Delete(key)
}

func (s *Expiring) write(key string, value any, deadline *time.Time) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %q: %w", key, err)
	}
	raw, err := json.Marshal(entry{Value: encoded, ExpiresAt: deadline})
	if err != nil {
		return fmt.Errorf("kv encode %q: %w", key, err)
	}
	if err := s.backend.Set(key, raw); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

package store

import (
	"testing"
	"time"
)

// memoryStore is an in-memory Durable used to test expiry semantics
// without touching disk.
type memoryStore struct {
	values  map[string][]byte
	deletes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string][]byte)}
}

func (m *memoryStore) Get(key string) ([]byte, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryStore) Set(key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *memoryStore) Delete(key string) error {
	delete(m.values, key)
	m.deletes++
	return nil
}

func (m *memoryStore) Close() error { return nil }

func TestGetReturnsStoredValue(t *testing.T) {
	s := NewExpiring(newMemoryStore())

	if err := s.Set("greeting", "hello"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got string
	ok, err := s.Get("greeting", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || got != "hello" {
		t.Errorf("expected stored value back, got ok=%v value=%q", ok, got)
	}
}

func TestGetEvictsExpiredEntryLazily(t *testing.T) {
	backend := newMemoryStore()
	s := NewExpiring(backend)

	if err := s.SetFor("session", "abc", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// Move the clock past the deadline.
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	var got string
	ok, err := s.Get("session", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatal("expected expired entry to be gone")
	}
	if backend.deletes != 1 {
		t.Errorf("expected eviction to be persisted, got %d deletes", backend.deletes)
	}
	if _, present, _ := backend.Get("session"); present {
		t.Error("expired entry still present in backend")
	}
}

func TestSetUntilHonorsAbsoluteDeadline(t *testing.T) {
	s := NewExpiring(newMemoryStore())

	if err := s.SetUntil("token", "t1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !s.Has("token") {
		t.Error("entry with future deadline should be live")
	}

	if err := s.SetUntil("stale", "t2", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if s.Has("stale") {
		t.Error("entry with past deadline should not be returned")
	}
}

func TestEntriesWithoutExpiryNeverEvict(t *testing.T) {
	s := NewExpiring(newMemoryStore())

	if err := s.Set("pinned", 42); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	s.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }

	var got int
	ok, err := s.Get("pinned", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || got != 42 {
		t.Errorf("expected non-expiring entry to survive, got ok=%v value=%d", ok, got)
	}
}

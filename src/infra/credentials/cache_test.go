package credentials

import (
	"testing"
	"time"

	"maestro/src/infra/store"
)

type memoryStore struct {
	values map[string][]byte
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
	return nil
}

func (m *memoryStore) Close() error { return nil }

func newTestCache() *Cache {
	return NewCache(store.NewExpiring(newMemoryStore()))
}

func TestTokenRoundTrip(t *testing.T) {
	cache := newTestCache()
	fp := Fingerprint("p1", "client", "secret", "http://localhost/callback")

	rec := Record{AccessToken: "tok", IssuingCode: "code-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := cache.Store(fp, rec); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, ok := cache.Token(fp, "code-1")
	if !ok {
		t.Fatal("expected a valid cached record")
	}
	if got.AccessToken != "tok" {
		t.Errorf("expected token %q, got %q", "tok", got.AccessToken)
	}
}

func TestTokenReturnsNoneAfterClear(t *testing.T) {
	cache := newTestCache()
	fp := Fingerprint("p1", "client", "secret", "http://localhost/callback")

	rec := Record{AccessToken: "tok", IssuingCode: "code-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := cache.Store(fp, rec); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := cache.Clear(fp); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, ok := cache.Token(fp, "code-1"); ok {
		t.Error("expected no record after clear")
	}
}

func TestTokenReturnsNoneOnceExpired(t *testing.T) {
	cache := newTestCache()
	fp := Fingerprint("p1", "client", "secret", "http://localhost/callback")

	rec := Record{AccessToken: "tok", IssuingCode: "code-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := cache.Store(fp, rec); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok := cache.Token(fp, "code-1"); ok {
		t.Error("expected no record once expiresAt is in the past")
	}
}

func TestTokenDiscardsRecordWhenIssuingCodeChanges(t *testing.T) {
	cache := newTestCache()
	fp := Fingerprint("p1", "client", "secret", "http://localhost/callback")

	rec := Record{AccessToken: "tok", IssuingCode: "code-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := cache.Store(fp, rec); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	if _, ok := cache.Token(fp, "code-2"); ok {
		t.Fatal("expected no record for a different issuing code")
	}
	// The stale record is evicted, not kept around: the original code no
	// longer matches either.
	if _, ok := cache.Token(fp, "code-1"); ok {
		t.Error("expected stale record to have been discarded")
	}
}

func TestFingerprintIsStableAndDistinct(t *testing.T) {
	a := Fingerprint("p1", "client", "secret", "http://localhost/callback")
	b := Fingerprint("p1", "client", "secret", "http://localhost/callback")
	c := Fingerprint("p2", "client", "secret", "http://localhost/callback")

	if a != b {
		t.Error("fingerprint must be stable for identical configuration")
	}
	if a == c {
		t.Error("fingerprint must differ for different players")
	}
}

// Package credentials caches bearer tokens for cloud backends, keyed by
// a fingerprint of the owning player configuration.
package credentials

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"maestro/src/infra/store"
)

// Record is a cached bearer token together with the authorization code
// that produced it and its expiry.
type Record struct {
	AccessToken string    `json:"accessToken"`
	IssuingCode string    `json:"issuingCode"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Valid reports whether the record can still be used: the token is
// non-empty, the issuing code matches the code currently configured and
// the expiry is strictly in the future.
func (r Record) Valid(issuingCode string, now time.Time) bool {
	return r.AccessToken != "" && r.IssuingCode == issuingCode && r.ExpiresAt.After(now)
}

// Fingerprint derives the cache key for a player's credential from the
// fields that identify its owner. The hash exists to avoid accidental
// cross-configuration sharing, not to protect the secret.
func Fingerprint(playerID, clientID, clientSecret, redirectURI string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s", playerID, clientID, clientSecret, redirectURI))
	return hex.EncodeToString(sum[:])
}

// Cache stores credential records in the expiring KV store.
type Cache struct {
	kv  *store.Expiring
	now func() time.Time
}

// NewCache creates a credential cache over the given store.
func NewCache(kv *store.Expiring) *Cache {
	return &Cache{kv: kv, now: time.Now}
}

// Token returns the cached record for fingerprint when it is still valid
// for the given issuing code. A record whose issuing code no longer
// matches is discarded immediately, not merely skipped.
func (c *Cache) Token(fingerprint, issuingCode string) (Record, bool) {
	var rec Record
	ok, err := c.kv.Get(key(fingerprint), &rec)
	if err != nil {
		slog.Error("Failed to read credential record", "error", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	if !rec.Valid(issuingCode, c.now()) {
		if err := c.kv.Delete(key(fingerprint)); err != nil {
			slog.Error("Failed to evict stale credential record", "error", err)
		}
		return Record{}, false
	}
	return rec, true
}

// Store overwrites the record for fingerprint unconditionally. The entry
// expires with the token so the backing store can reclaim it.
func (c *Cache) Store(fingerprint string, rec Record) error {
	return c.kv.SetUntil(key(fingerprint), rec, rec.ExpiresAt)
}

// Clear removes the record for fingerprint. Used on explicit logout; the
// caller is responsible for also clearing the issuing code from the live
// configuration so a future authorization starts clean.
func (c *Cache) Clear(fingerprint string) error {
	return c.kv.Delete(key(fingerprint))
}

func key(fingerprint string) string {
	return "credentials:" + fingerprint
}

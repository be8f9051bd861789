package models

import "time"

// CacheEntry is a single cached query result.
// TTL is a snapshot of the policy TTL taken when the entry was written.
type CacheEntry struct {
	Key      string    `json:"key"`
	Value    any       `json:"value"`
	StoredAt time.Time `json:"stored_at" validate:"required"`
	TTL      int       `json:"ttl"` // seconds
}

// TTLDuration returns the entry TTL as a time.Duration
func (e *CacheEntry) TTLDuration() time.Duration {
	return time.Duration(e.TTL) * time.Second
}

// Age returns how long ago the entry was stored
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// ExpiresIn returns the remaining lifetime. Zero or negative means expired.
func (e *CacheEntry) ExpiresIn(now time.Time) time.Duration {
	return e.TTLDuration() - e.Age(now)
}

// IsExpired checks if the entry outlived its TTL
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return e.ExpiresIn(now) <= 0
}

// DueForRefresh reports whether the elapsed fraction of the TTL reached threshold
// while the entry is still valid.
func (e *CacheEntry) DueForRefresh(now time.Time, threshold float64) bool {
	if e.IsExpired(now) {
		return false
	}
	elapsed := float64(e.Age(now)) / float64(e.TTLDuration())
	return elapsed >= threshold
}
